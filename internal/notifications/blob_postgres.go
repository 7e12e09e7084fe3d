package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBlobStore keeps the serialized log in a single row of the
// notification_log table, using the version column for optimistic
// concurrency. Every node of a multi-node deployment shares this row the way
// sibling browser tabs share one storage key.
type PostgresBlobStore struct {
	pool *pgxpool.Pool
}

func NewPostgresBlobStore(pool *pgxpool.Pool) *PostgresBlobStore {
	return &PostgresBlobStore{pool: pool}
}

func (s *PostgresBlobStore) Load(ctx context.Context) ([]byte, int64, error) {
	var data []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM notification_log WHERE key = $1`, logKey,
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load notification log: %w", err)
	}
	return data, version, nil
}

func (s *PostgresBlobStore) Save(ctx context.Context, data []byte, expected int64) (int64, error) {
	if expected == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO notification_log (key, data, version) VALUES ($1, $2, 1)
			 ON CONFLICT (key) DO NOTHING`, logKey, data)
		if err != nil {
			return 0, fmt.Errorf("insert notification log: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
		return 1, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE notification_log SET data = $2, version = version + 1
		 WHERE key = $1 AND version = $3`, logKey, data, expected)
	if err != nil {
		return 0, fmt.Errorf("update notification log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return expected + 1, nil
}
