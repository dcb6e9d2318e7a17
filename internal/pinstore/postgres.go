package pinstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists objects in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to dsn and returns a store owning the pool.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// EnsureSchema creates the objects table when it does not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS pinned_objects (
	cid          TEXT PRIMARY KEY,
	content_type TEXT NOT NULL DEFAULT '',
	data         BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Put inserts obj, leaving an existing row untouched.
func (s *PostgresStore) Put(ctx context.Context, obj Object) error {
	const query = `
INSERT INTO pinned_objects (cid, content_type, data, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cid) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, obj.CID, obj.ContentType, obj.Data, obj.CreatedAt)
	return err
}

// Get returns the object or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (Object, error) {
	const query = `SELECT cid, content_type, data, created_at FROM pinned_objects WHERE cid = $1`
	var obj Object
	err := s.pool.QueryRow(ctx, query, id).Scan(&obj.CID, &obj.ContentType, &obj.Data, &obj.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, err
	}
	return obj, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
