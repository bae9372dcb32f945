// Package pgstore persists snapshots in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
)

// Store implements snapshot.Store for PostgreSQL
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// Connect opens a pool for the DSN and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tableName: "snapshots"}
}

var errNoPool = errors.New("no connection pool")

// Save upserts a snapshot; created_at survives overwrites.
func (s *Store) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return snapshot.ErrInvalidKey
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}
	if s.pool == nil {
		return fmt.Errorf("%w: %v", snapshot.ErrSaveFailed, errNoPool)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, diagram_id, name, data, codec, compression, node_count, edge_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (key) DO UPDATE SET
			diagram_id = EXCLUDED.diagram_id,
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			codec = EXCLUDED.codec,
			compression = EXCLUDED.compression,
			node_count = EXCLUDED.node_count,
			edge_count = EXCLUDED.edge_count,
			updated_at = NOW()
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query,
		snap.Key, snap.DiagramID, snap.Name, snap.Data, snap.Codec, snap.Compression, snap.NodeCount, snap.EdgeCount)
	if err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrSaveFailed, err)
	}
	return nil
}

// Load retrieves a snapshot by key
func (s *Store) Load(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	if key == "" {
		return nil, snapshot.ErrInvalidKey
	}
	if s.pool == nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrLoadFailed, errNoPool)
	}

	query := fmt.Sprintf(`
		SELECT key, diagram_id, name, data, codec, compression, node_count, edge_count, created_at, updated_at
		FROM %s
		WHERE key = $1
	`, s.tableName)

	snap, err := scan(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, snapshot.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: %v", snapshot.ErrLoadFailed, err)
	}
	return snap, nil
}

// List retrieves snapshots based on filter criteria
func (s *Store) List(ctx context.Context, filter snapshot.Filter) ([]*snapshot.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}
	if s.pool == nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrLoadFailed, errNoPool)
	}

	query, args := s.buildListQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		snap, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by key
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return snapshot.ErrInvalidKey
	}
	if s.pool == nil {
		return fmt.Errorf("%w: %v", snapshot.ErrDeleteFailed, errNoPool)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrDeleteFailed, err)
	}
	if result.RowsAffected() == 0 {
		return snapshot.ErrSnapshotNotFound
	}
	return nil
}

// CreateTables creates the snapshot table
func (s *Store) CreateTables(ctx context.Context) error {
	if s.pool == nil {
		return errNoPool
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key VARCHAR(255) PRIMARY KEY,
			diagram_id VARCHAR(255) NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data BYTEA NOT NULL,
			codec VARCHAR(32) NOT NULL DEFAULT 'json',
			compression VARCHAR(32) NOT NULL DEFAULT 'none',
			node_count INTEGER NOT NULL DEFAULT 0,
			edge_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%s_diagram_id ON %s (diagram_id);
		CREATE INDEX IF NOT EXISTS idx_%s_updated_at ON %s (updated_at);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Store) buildListQuery(filter snapshot.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT key, diagram_id, name, data, codec, compression, node_count, edge_count, created_at, updated_at FROM %s WHERE 1=1", s.tableName)
	args := make([]interface{}, 0)
	argCount := 0

	if filter.DiagramID != "" {
		argCount++
		query += fmt.Sprintf(" AND diagram_id = $%d", argCount)
		args = append(args, filter.DiagramID)
	}
	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND updated_at >= $%d", argCount)
		args = append(args, *filter.Since)
	}
	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND updated_at < $%d", argCount)
		args = append(args, *filter.Before)
	}

	query += " ORDER BY updated_at DESC, key ASC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}
	return query, args
}

func scan(row pgx.Row) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	err := row.Scan(&snap.Key, &snap.DiagramID, &snap.Name, &snap.Data, &snap.Codec,
		&snap.Compression, &snap.NodeCount, &snap.EdgeCount, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
