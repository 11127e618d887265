package repository

import (
	"context"
	"sync"

	"heri-science-api/pkg/models"
)

const defaultMemoryCapacity = 500

// MemoryHistoryRepository keeps the most recent records in process memory.
// Used when no database is configured.
type MemoryHistoryRepository struct {
	mu       sync.RWMutex
	records  []*models.ProcessingRecord
	byID     map[string]*models.ProcessingRecord
	capacity int
}

// NewMemoryHistoryRepository creates an in-memory repository holding at most
// capacity records. The oldest record is dropped when full.
func NewMemoryHistoryRepository(capacity int) *MemoryHistoryRepository {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryHistoryRepository{
		byID:     make(map[string]*models.ProcessingRecord),
		capacity: capacity,
	}
}

func (r *MemoryHistoryRepository) Save(ctx context.Context, record *models.ProcessingRecord) error {
	if err := validate(record); err != nil {
		return err
	}

	stored := *record

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[stored.ID]; ok {
		*old = stored
		return nil
	}
	if len(r.records) >= r.capacity {
		delete(r.byID, r.records[0].ID)
		r.records = r.records[1:]
	}
	r.records = append(r.records, &stored)
	r.byID[stored.ID] = &stored
	return nil
}

func (r *MemoryHistoryRepository) List(ctx context.Context, limit int) ([]*models.ProcessingRecord, error) {
	limit = normalizeLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ProcessingRecord, 0, min(limit, len(r.records)))
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := *r.records[i]
		out = append(out, &rec)
	}
	return out, nil
}

func (r *MemoryHistoryRepository) Get(ctx context.Context, id string) (*models.ProcessingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *rec
	return &out, nil
}

func (r *MemoryHistoryRepository) Close() error { return nil }
