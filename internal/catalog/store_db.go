package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresStore keeps the serialized collection as one row of
// catalog_snapshots, keyed by name.
type PostgresStore struct {
	db   *sql.DB
	name string
}

func NewPostgresStore(db *sql.DB, name string) *PostgresStore {
	return &PostgresStore{db: db, name: name}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS catalog_snapshots (
				name       TEXT PRIMARY KEY,
				body       JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	err := withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
	if err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]Product, error) {
	var body []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT body
			FROM catalog_snapshots
			WHERE name = $1
		`, s.name).Scan(&body)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return []Product{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return decodeProducts(body)
}

func (s *PostgresStore) Save(ctx context.Context, products []Product) error {
	body, err := encodeProducts(products)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO catalog_snapshots (name, body, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE
			SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
		`, s.name, string(body))
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
