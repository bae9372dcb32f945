// Package memory provides an in-process snapshot store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
)

// Store implements snapshot.Store with a mutex-guarded map
// PRINCIPLES:
// - KISS: Simple map with proper concurrency
// - DIP: Implements snapshot.Store interface
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupOnce   sync.Once
}

// Config holds configuration for Store
type Config struct {
	TTL             time.Duration // zero keeps snapshots forever
	CleanupInterval time.Duration // zero disables the background sweep
}

type entry struct {
	snap      *snapshot.Snapshot
	expiresAt time.Time
}

// New creates a memory store.
func New(config Config) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		ttl:         config.TTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	if config.TTL > 0 && config.CleanupInterval > 0 {
		s.startCleanup(config.CleanupInterval)
	}
	return s
}

// Save stores a copy of the snapshot, keeping CreatedAt of an earlier save
// under the same key.
func (s *Store) Save(_ context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return snapshot.ErrInvalidKey
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}

	now := s.now()
	c := snap.Clone()
	c.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[c.Key]; ok && !s.expired(prev, now) {
		c.CreatedAt = prev.snap.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	e := &entry{snap: c}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.entries[c.Key] = e
	return nil
}

// Load retrieves a snapshot by key
func (s *Store) Load(_ context.Context, key string) (*snapshot.Snapshot, error) {
	if key == "" {
		return nil, snapshot.ErrInvalidKey
	}
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.expired(e, s.now()) {
		return nil, snapshot.ErrSnapshotNotFound
	}
	return e.snap.Clone(), nil
}

// List returns snapshots matching the filter, newest first
func (s *Store) List(_ context.Context, filter snapshot.Filter) ([]*snapshot.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	now := s.now()
	s.mu.RLock()
	var results []*snapshot.Snapshot
	for _, e := range s.entries {
		if s.expired(e, now) || !filter.Matches(e.snap) {
			continue
		}
		results = append(results, e.snap.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].Key < results[j].Key
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Delete removes a snapshot by key
func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" {
		return snapshot.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return snapshot.ErrSnapshotNotFound
	}
	delete(s.entries, key)
	return nil
}

// Len returns the number of live snapshots.
func (s *Store) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !s.expired(e, now) {
			n++
		}
	}
	return n
}

// Close stops the cleanup goroutine
func (s *Store) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
	})
	return nil
}

func (s *Store) startCleanup(interval time.Duration) {
	s.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupExpired()
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

func (s *Store) cleanupExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, k)
		}
	}
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
