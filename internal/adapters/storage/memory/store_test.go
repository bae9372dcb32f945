package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
)

func newSnap(key, diagramID string) *snapshot.Snapshot {
	return &snapshot.Snapshot{Key: key, DiagramID: diagramID, Data: []byte(`{"nodes":[],"edges":[]}`), Codec: "json", Compression: "none"}
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	defer s.Close()

	orig := newSnap(snapshot.DefaultKey, "d1")
	require.NoError(t, s.Save(ctx, orig))
	orig.Data[0] = 'X'

	got, err := s.Load(ctx, snapshot.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), got.Data[0], "store keeps its own copy")
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, snapshot.ErrInvalidKey)
}

func TestStore_SaveOverwriteKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	t0 := time.Unix(1000, 0)
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.Save(ctx, newSnap("k", "d1")))

	s.now = func() time.Time { return t0.Add(time.Minute) }
	require.NoError(t, s.Save(ctx, newSnap("k", "d2")))

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "d2", got.DiagramID)
	assert.Equal(t, t0, got.CreatedAt)
	assert.Equal(t, t0.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveInvalid(t *testing.T) {
	s := New(Config{})
	assert.ErrorIs(t, s.Save(context.Background(), nil), snapshot.ErrInvalidKey)
	assert.ErrorIs(t, s.Save(context.Background(), &snapshot.Snapshot{Key: "k", DiagramID: "d"}), snapshot.ErrEmptyData)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	base := time.Unix(5000, 0)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		diagramID := "a"
		if i%2 == 1 {
			diagramID = "b"
		}
		require.NoError(t, s.Save(ctx, newSnap(fmt.Sprintf("k%d", i), diagramID)))
	}

	all, err := s.List(ctx, snapshot.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "k4", all[0].Key, "newest first")

	onlyA, err := s.List(ctx, snapshot.Filter{DiagramID: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 3)

	page, err := s.List(ctx, snapshot.Filter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []string{"k3", "k2"}, []string{page[0].Key, page[1].Key})

	past, err := s.List(ctx, snapshot.Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = s.List(ctx, snapshot.Filter{Limit: -1})
	assert.ErrorIs(t, err, snapshot.ErrInvalidLimit)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	require.NoError(t, s.Save(ctx, newSnap("k", "d")))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.ErrorIs(t, s.Delete(ctx, "k"), snapshot.ErrSnapshotNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ""), snapshot.ErrInvalidKey)
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := New(Config{TTL: time.Minute})
	t0 := time.Unix(0, 0)
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.Save(ctx, newSnap("k", "d")))

	s.now = func() time.Time { return t0.Add(2 * time.Minute) }
	_, err := s.Load(ctx, "k")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
	assert.Equal(t, 0, s.Len())

	s.cleanupExpired()
	s.mu.RLock()
	assert.Empty(t, s.entries)
	s.mu.RUnlock()
}

func TestStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := New(Config{TTL: time.Hour, CleanupInterval: time.Millisecond})
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = s.Save(ctx, newSnap(key, "d"))
			_, _ = s.Load(ctx, key)
			_, _ = s.List(ctx, snapshot.Filter{})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.Len())
}
