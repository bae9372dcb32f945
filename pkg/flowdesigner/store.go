package flowdesigner

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowgraph/flowdesigner/internal/adapters/storage/memory"
	"github.com/flowgraph/flowdesigner/internal/adapters/storage/pgstore"
	"github.com/flowgraph/flowdesigner/internal/adapters/storage/sqlstore"
	"github.com/flowgraph/flowdesigner/internal/config"
	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
)

// ErrUnknownDriver is returned for a storage driver OpenStore cannot build.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Store is a snapshot store that holds resources until closed.
type Store interface {
	snapshot.Store
	Close() error
}

type pgStore struct{ *pgstore.Store }

func (s pgStore) Close() error {
	s.Store.Close()
	return nil
}

// OpenStore builds the snapshot store named by cfg.Driver. SQL stores get
// their table created if missing.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(memory.Config{}), nil
	case "sqlite", "postgres":
		s, err := sqlstore.Open(sqlstore.Dialect(cfg.Driver), cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.CreateTables(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "pgx":
		s, err := pgstore.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.CreateTables(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return pgStore{s}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
