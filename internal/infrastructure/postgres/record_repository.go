package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/vidbrief/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createRecordsTable = `
	CREATE TABLE IF NOT EXISTS cache_records (
		key        TEXT PRIMARY KEY,
		payload    BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)
`

// Compile-time verification that RecordRepository implements RecordStore.
var _ repository.RecordStore = (*RecordRepository)(nil)

// RecordRepository implements repository.RecordStore using PostgreSQL.
type RecordRepository struct {
	db  DBTX
	now func() time.Time
}

// NewRecordRepository creates a new RecordRepository instance.
func NewRecordRepository(db DBTX) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now}
}

// EnsureSchema creates the cache_records table if it does not exist.
func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createRecordsTable); err != nil {
		return fmt.Errorf("failed to create cache_records table: %w", err)
	}
	return nil
}

// Get retrieves the payload stored under key.
func (r *RecordRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := repository.ValidateKey(key); err != nil {
		return nil, err
	}

	const query = `
		SELECT payload
		FROM cache_records
		WHERE key = $1
	`

	var payload []byte
	if err := r.db.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return payload, nil
}

// Put inserts or replaces the payload stored under key.
func (r *RecordRepository) Put(ctx context.Context, key string, payload []byte) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}

	const query = `
		INSERT INTO cache_records (key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Exec(ctx, query, key, payload, r.now()); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}

	return nil
}

// Delete removes the payload stored under key.
func (r *RecordRepository) Delete(ctx context.Context, key string) error {
	if err := repository.ValidateKey(key); err != nil {
		return err
	}

	const query = `
		DELETE FROM cache_records
		WHERE key = $1
	`

	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}
