package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"heri-science-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id string, at time.Time) *models.ProcessingRecord {
	return &models.ProcessingRecord{
		ID:          id,
		ProcessType: "super-resolution",
		Mode:        "QUALITY",
		Intensity:   0.75,
		CreatedAt:   at,
	}
}

func TestMemoryHistoryRepository_SaveAndGet(t *testing.T) {
	repo := NewMemoryHistoryRepository(10)
	ctx := context.Background()

	rec := testRecord("a", time.Now())
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "QUALITY", got.Mode)

	// stored copies are isolated from the caller
	rec.Mode = "FAST"
	got.Mode = "ULTRA"
	again, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "QUALITY", again.Mode)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryHistoryRepository_Invalid(t *testing.T) {
	repo := NewMemoryHistoryRepository(0)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Save(ctx, nil), ErrInvalidRecord)
	assert.ErrorIs(t, repo.Save(ctx, &models.ProcessingRecord{ID: "x"}), ErrInvalidRecord)
	assert.ErrorIs(t, repo.Save(ctx, testRecord("", time.Now())), ErrInvalidRecord)
}

func TestMemoryHistoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryHistoryRepository(3)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, testRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r4", all[0].ID)
	assert.Equal(t, "r2", all[2].ID)

	_, err = repo.Get(ctx, "r0")
	assert.ErrorIs(t, err, ErrRecordNotFound, "oldest record should be evicted")

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestMemoryHistoryRepository_SaveReplaces(t *testing.T) {
	repo := NewMemoryHistoryRepository(5)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testRecord("a", time.Now())))
	updated := testRecord("a", time.Now())
	updated.Degraded = true
	require.NoError(t, repo.Save(ctx, updated))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Degraded)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, normalizeLimit(0))
	assert.Equal(t, DefaultListLimit, normalizeLimit(-3))
	assert.Equal(t, 7, normalizeLimit(7))
	assert.Equal(t, MaxListLimit, normalizeLimit(5000))
}
