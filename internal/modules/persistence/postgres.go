// README: Persistence backend on PostgreSQL; one JSONB row per (worker, key).
package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"partner/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS worker_state (
    worker_id  TEXT        NOT NULL,
    key        TEXT        NOT NULL,
    value      JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (worker_id, key)
)`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, workerID types.ID) (map[Key][]byte, error) {
	rows, err := s.db.Query(ctx, `
        SELECT key, value
        FROM worker_state
        WHERE worker_id = $1`, string(workerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Key][]byte)
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[Key(k)] = v
	}
	return out, rows.Err()
}

// Save upserts all slices in one transaction so a logical step lands together.
func (s *PostgresStore) Save(ctx context.Context, workerID types.ID, slices map[Key][]byte) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for k, v := range slices {
			_, err := tx.Exec(ctx, `
                INSERT INTO worker_state (worker_id, key, value, updated_at)
                VALUES ($1, $2, $3, NOW())
                ON CONFLICT (worker_id, key)
                DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				string(workerID), string(k), string(v),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
