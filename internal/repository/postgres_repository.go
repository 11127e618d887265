package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"heri-science-api/pkg/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS processing_history (
	id                  TEXT PRIMARY KEY,
	process_type        TEXT NOT NULL,
	mode                TEXT NOT NULL,
	intensity           DOUBLE PRECISION NOT NULL,
	original_size       TEXT NOT NULL DEFAULT '',
	processed_size      TEXT NOT NULL DEFAULT '',
	processed_url       TEXT NOT NULL DEFAULT '',
	upload_backend      TEXT NOT NULL DEFAULT '',
	degraded            BOOLEAN NOT NULL DEFAULT FALSE,
	processing_time_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL
)`

const historyColumns = `id, process_type, mode, intensity, original_size, processed_size,
	processed_url, upload_backend, degraded, processing_time_sec, created_at`

const insertRecord = `INSERT INTO processing_history (` + historyColumns + `)
VALUES (:id, :process_type, :mode, :intensity, :original_size, :processed_size,
	:processed_url, :upload_backend, :degraded, :processing_time_sec, :created_at)
ON CONFLICT (id) DO NOTHING`

// PostgresHistoryRepository stores history in a processing_history table
type PostgresHistoryRepository struct {
	db *sqlx.DB
}

// OpenPostgres connects to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewPostgresHistoryRepository wraps an open database handle
func NewPostgresHistoryRepository(db *sqlx.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Migrate creates the history table if it does not exist
func (r *PostgresHistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("migrate processing_history: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) Save(ctx context.Context, record *models.ProcessingRecord) error {
	if err := validate(record); err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, insertRecord, record); err != nil {
		return fmt.Errorf("insert processing record: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, limit int) ([]*models.ProcessingRecord, error) {
	var records []*models.ProcessingRecord
	query := `SELECT ` + historyColumns + ` FROM processing_history ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &records, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("list processing records: %w", err)
	}
	return records, nil
}

func (r *PostgresHistoryRepository) Get(ctx context.Context, id string) (*models.ProcessingRecord, error) {
	var record models.ProcessingRecord
	query := `SELECT ` + historyColumns + ` FROM processing_history WHERE id = $1`
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get processing record: %w", err)
	}
	return &record, nil
}

func (r *PostgresHistoryRepository) Close() error {
	return r.db.Close()
}
