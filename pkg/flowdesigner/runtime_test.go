package flowdesigner

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowdesigner/internal/config"
	"github.com/flowgraph/flowdesigner/internal/core/canvas"
)

func TestRuntime_DesignerRoundTrip(t *testing.T) {
	rt := NewDefaultRuntime()
	defer rt.Close()
	ctx := context.Background()

	d := rt.NewDesigner(canvas.WithDiagram("leave", "请假"))
	_, err := d.AddNode(&Node{ID: "s", Type: "start", X: 100, Y: 100})
	require.NoError(t, err)
	_, err = d.AddNode(&Node{ID: "e", Type: "end", X: 300, Y: 100})
	require.NoError(t, err)
	_, err = d.Connect("s", "e", "")
	require.NoError(t, err)

	resp, err := d.Toolbar.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, rt.Config().Storage.Key, resp.Key)

	var xml bytes.Buffer
	require.NoError(t, d.Toolbar.Export(&xml, ""))

	other := rt.NewDesigner()
	_, err = other.Toolbar.Import(xml.String())
	require.NoError(t, err)
	assert.Equal(t, 2, other.NodeCount())

	require.NoError(t, other.Toolbar.Clear())
	_, err = other.Toolbar.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, other.NodeCount())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.DSN = filepath.Join(t.TempDir(), "snapshots.db")
		cfg.Storage.Codec = "msgpack"
		cfg.Storage.Compression = "zstd"

		rt, err := NewRuntime(ctx, cfg, nil)
		require.NoError(t, err)
		defer rt.Close()

		d := rt.NewDesigner()
		_, err = d.AddNode(&Node{ID: "t", Type: "task"})
		require.NoError(t, err)
		_, err = d.Toolbar.Save(ctx)
		require.NoError(t, err)

		snap, err := rt.Store().Load(ctx, cfg.Storage.Key)
		require.NoError(t, err)
		assert.Equal(t, "msgpack", snap.Codec)
		assert.Equal(t, "zstd", snap.Compression)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenStore(ctx, config.StorageConfig{Driver: "redis"})
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("bad codec", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.Codec = "xml"
		_, err := NewRuntime(ctx, cfg, nil)
		assert.Error(t, err)
	})
}
