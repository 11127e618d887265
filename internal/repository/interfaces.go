package repository

import (
	"context"

	"heri-science-api/pkg/models"
)

const (
	// DefaultListLimit is used when List is called with a non-positive limit
	DefaultListLimit = 20
	// MaxListLimit caps a single List call
	MaxListLimit = 100
)

// HistoryRepository stores processed image records
type HistoryRepository interface {
	// Save stores a record. ID and CreatedAt must be set.
	Save(ctx context.Context, record *models.ProcessingRecord) error

	// List returns the newest records first
	List(ctx context.Context, limit int) ([]*models.ProcessingRecord, error)

	// Get returns the record with id or ErrRecordNotFound
	Get(ctx context.Context, id string) (*models.ProcessingRecord, error)

	// Close releases resources held by the repository
	Close() error
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

func validate(record *models.ProcessingRecord) error {
	if record == nil || record.ID == "" || record.CreatedAt.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}
