// Package sqlstore persists snapshots through database/sql. The same code
// serves SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq); only the
// placeholder style and column types differ.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
)

// Dialect selects placeholder and DDL flavour.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnknownDialect is returned by Open for unsupported drivers.
var ErrUnknownDialect = errors.New("unknown SQL dialect")

// Store implements snapshot.Store on a *sql.DB
type Store struct {
	db        *sql.DB
	dialect   Dialect
	tableName string
	now       func() time.Time
}

// Open connects with the driver registered for the dialect.
func Open(dialect Dialect, dsn string) (*Store, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	return New(db, dialect), nil
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:        db,
		dialect:   dialect,
		tableName: "snapshots",
		now:       time.Now,
	}
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (s *Store) WithTableName(name string) *Store {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const columns = "key, diagram_id, name, data, codec, compression, node_count, edge_count, created_at, updated_at"

// Save upserts a snapshot, keeping created_at of an existing row.
func (s *Store) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return snapshot.ErrInvalidKey
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}
	if s.db == nil {
		return fmt.Errorf("%w: no database", snapshot.ErrSaveFailed)
	}

	now := s.now()
	created := snap.CreatedAt
	if created.IsZero() {
		created = now
	}

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			diagram_id = excluded.diagram_id,
			name = excluded.name,
			data = excluded.data,
			codec = excluded.codec,
			compression = excluded.compression,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at
	`, s.tableName, columns))

	_, err := s.db.ExecContext(ctx, query,
		snap.Key, snap.DiagramID, snap.Name, snap.Data, snap.Codec, snap.Compression,
		snap.NodeCount, snap.EdgeCount, created.UnixMilli(), now.UnixMilli())
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
	if s.db == nil {
		return nil, fmt.Errorf("%w: no database", snapshot.ErrLoadFailed)
	}

	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE key = ?", columns, s.tableName))
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	if s.db == nil {
		return nil, fmt.Errorf("%w: no database", snapshot.ErrLoadFailed)
	}

	query, args := s.buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
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
	if s.db == nil {
		return fmt.Errorf("%w: no database", snapshot.ErrDeleteFailed)
	}

	query := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.tableName))
	result, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrDeleteFailed, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return snapshot.ErrSnapshotNotFound
	}
	return nil
}

// CreateTables creates the snapshot table and its indexes.
func (s *Store) CreateTables(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("%w: no database", snapshot.ErrSaveFailed)
	}
	blob, integer := "BLOB", "INTEGER"
	if s.dialect == DialectPostgres {
		blob, integer = "BYTEA", "BIGINT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			diagram_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data %s NOT NULL,
			codec TEXT NOT NULL DEFAULT 'json',
			compression TEXT NOT NULL DEFAULT 'none',
			node_count INTEGER NOT NULL DEFAULT 0,
			edge_count INTEGER NOT NULL DEFAULT 0,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, s.tableName, blob, integer, integer),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_diagram_id ON %s (diagram_id)", s.tableName, s.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_updated_at ON %s (updated_at)", s.tableName, s.tableName),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

func (s *Store) buildListQuery(filter snapshot.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", columns, s.tableName)
	args := make([]interface{}, 0)

	if filter.DiagramID != "" {
		query += " AND diagram_id = ?"
		args = append(args, filter.DiagramID)
	}
	if filter.Since != nil {
		query += " AND updated_at >= ?"
		args = append(args, filter.Since.UnixMilli())
	}
	if filter.Before != nil {
		query += " AND updated_at < ?"
		args = append(args, filter.Before.UnixMilli())
	}

	query += " ORDER BY updated_at DESC, key ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 && s.dialect == DialectSQLite {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}
	return s.rebind(query), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var created, updated int64
	if err := row.Scan(&snap.Key, &snap.DiagramID, &snap.Name, &snap.Data, &snap.Codec,
		&snap.Compression, &snap.NodeCount, &snap.EdgeCount, &created, &updated); err != nil {
		return nil, err
	}
	snap.CreatedAt = time.UnixMilli(created)
	snap.UpdatedAt = time.UnixMilli(updated)
	return &snap, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
