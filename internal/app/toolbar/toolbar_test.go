package toolbar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/adapters/storage/memory"
	"github.com/flowgraph/flowdesigner/internal/core/canvas"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
	"github.com/flowgraph/flowdesigner/pkg/bpmn"
	"github.com/flowgraph/flowdesigner/pkg/serialization"
)

type fakeEngine struct {
	deployName string
	deployXML  string
	started    []engine.StartRequest
	err        error
}

func (f *fakeEngine) Deploy(_ context.Context, name, doc string) (*engine.Result, error) {
	f.deployName, f.deployXML = name, doc
	if f.err != nil {
		return &engine.Result{StatusCode: 500, Body: "boom"}, f.err
	}
	return &engine.Result{StatusCode: 200, Body: `{"id":"dep-1"}`}, nil
}

func (f *fakeEngine) Start(_ context.Context, req engine.StartRequest) (*engine.Result, error) {
	f.started = append(f.started, req)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Result{StatusCode: 200, Body: "started"}, nil
}

type notices []Notice

func (n *notices) notifier() Notifier {
	return NotifierFunc(func(x Notice) { *n = append(*n, x) })
}

func (n notices) failures() []Notice {
	var out []Notice
	for _, x := range n {
		if x.Err != nil {
			out = append(out, x)
		}
	}
	return out
}

func populated(t *testing.T) *canvas.Controller {
	t.Helper()
	c := canvas.New(canvas.WithDiagram("demo", "Demo"))
	_, err := c.AddNode(&diagram.Node{ID: "s", Type: diagram.NodeTypeStart, X: 100, Y: 100, Text: "开始"})
	require.NoError(t, err)
	_, err = c.AddNode(&diagram.Node{ID: "t", Type: diagram.NodeTypeTask, X: 300, Y: 100, Text: "审批"})
	require.NoError(t, err)
	_, err = c.AddEdge(&diagram.Edge{ID: "f", Source: "s", Target: "t"})
	require.NoError(t, err)
	return c
}

func TestToolbar_SaveAndLoad(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := memory.New(memory.Config{})
	c := populated(t)
	tb := New(c, WithStore(store), WithLogger(zap.New(core)))

	resp, err := tb.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot.DefaultKey, resp.Key)
	assert.Equal(t, 2, resp.Nodes)
	assert.Equal(t, 1, resp.Edges)
	assert.Equal(t, "json", resp.Codec)
	assert.Equal(t, 1, logs.FilterMessage("graph data").Len())

	snap, err := store.Load(context.Background(), snapshot.DefaultKey)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(snap.Data, []byte(`{"id":"demo"`)))

	require.NoError(t, tb.Clear())
	d, err := tb.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.NodeCount())

	live, err := c.GraphData()
	require.NoError(t, err)
	assert.Equal(t, 2, live.NodeCount())
	assert.Equal(t, 1, live.EdgeCount())
}

func TestToolbar_LoadUsesStoredCodec(t *testing.T) {
	store := memory.New(memory.Config{})
	zstd, err := serialization.FromNames("msgpack", "zstd")
	require.NoError(t, err)

	writer := New(populated(t), WithStore(store), WithSerializer(zstd))
	_, err = writer.Save(context.Background())
	require.NoError(t, err)

	// a reader with the default JSON serializer still decodes it
	target := canvas.New()
	reader := New(target, WithStore(store))
	_, err = reader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, target.NodeCount())
}

func TestToolbar_LoadErrors(t *testing.T) {
	t.Run("nothing saved", func(t *testing.T) {
		var got notices
		c := populated(t)
		tb := New(c, WithNotifier(got.notifier()))

		_, err := tb.Load(context.Background())
		assert.ErrorIs(t, err, ErrNoSavedDiagram)
		assert.Equal(t, 2, c.NodeCount(), "canvas untouched")
		require.Len(t, got.failures(), 1)
		assert.Equal(t, "load", got[0].Action)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		store := memory.New(memory.Config{})
		require.NoError(t, store.Save(context.Background(), &snapshot.Snapshot{
			Key: snapshot.DefaultKey, DiagramID: "demo", Data: []byte("{not json"), Codec: "json",
		}))
		c := populated(t)
		tb := New(c, WithStore(store))

		_, err := tb.Load(context.Background())
		assert.ErrorIs(t, err, ErrCorruptSave)
		assert.Equal(t, 2, c.NodeCount())
	})

	t.Run("unknown codec", func(t *testing.T) {
		store := memory.New(memory.Config{})
		require.NoError(t, store.Save(context.Background(), &snapshot.Snapshot{
			Key: "k", DiagramID: "demo", Data: []byte("x"), Codec: "protobuf",
		}))
		tb := New(canvas.New(), WithStore(store), WithKey("k"))

		_, err := tb.Load(context.Background())
		assert.ErrorIs(t, err, ErrCorruptSave)
	})
}

func TestToolbar_Export(t *testing.T) {
	tb := New(populated(t))

	var xml bytes.Buffer
	require.NoError(t, tb.Export(&xml, ""))
	assert.Contains(t, xml.String(), `<bpmn:startEvent id="s" name="开始"`)
	assert.Contains(t, xml.String(), `<bpmn:sequenceFlow id="f" sourceRef="s" targetRef="t"`)

	var js bytes.Buffer
	require.NoError(t, tb.Export(&js, "json"))
	var gd diagram.GraphData
	require.NoError(t, json.Unmarshal(js.Bytes(), &gd))
	assert.Len(t, gd.Nodes, 2)

	var got notices
	tb = New(populated(t), WithNotifier(got.notifier()))
	assert.Error(t, tb.Export(&bytes.Buffer{}, "svg"))
	assert.Len(t, got.failures(), 1)
}

func TestToolbar_ExportFile(t *testing.T) {
	dir := t.TempDir()
	now := time.UnixMilli(1700000000123)
	tb := New(populated(t), WithClock(func() time.Time { return now }))

	path, err := tb.ExportFile(dir, "bpmn")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "diagram_1700000000123.bpmn"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `<?xml`))

	assert.Equal(t, "diagram_5.json", FileName("json", time.UnixMilli(5)))
}

func TestToolbar_Import(t *testing.T) {
	src := New(populated(t))
	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf, "bpmn"))

	var got notices
	target := canvas.New(canvas.WithDiagram("other", "Other"))
	tb := New(target, WithNotifier(got.notifier()))

	report, err := tb.Import(buf.String())
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 2, target.NodeCount())
	assert.Empty(t, got.failures())

	_, err = tb.Import("<bpmn:definitions")
	assert.ErrorIs(t, err, bpmn.ErrMalformedXML)
	assert.Equal(t, 2, target.NodeCount(), "failed import leaves the canvas alone")
	assert.Len(t, got.failures(), 1)
}

func TestToolbar_ImportJSON(t *testing.T) {
	target := canvas.New()
	tb := New(target)
	require.NoError(t, tb.ImportJSON([]byte(`{"nodes":[{"id":"a","type":"task","x":1,"y":2}],"edges":[]}`)))
	assert.Equal(t, 1, target.NodeCount())

	assert.Error(t, tb.ImportJSON([]byte(`[`)))
	assert.Equal(t, 1, target.NodeCount())
}

func TestToolbar_ImportJSONEditorTypes(t *testing.T) {
	target := canvas.New()
	tb := New(target)
	require.NoError(t, tb.ImportJSON([]byte(`{"nodes":[
		{"id":"a","type":"start-node","x":100,"y":100},
		{"id":"b","type":"diamond","x":300,"y":100},
		{"id":"c","type":"hexagon","x":500,"y":100}
	],"edges":[
		{"id":"ab","sourceNodeId":"a","targetNodeId":"b"},
		{"id":"cc","sourceNodeId":"c","targetNodeId":"c"}
	]}`)))

	g, err := target.GraphData()
	require.NoError(t, err)
	c, ok := g.Node("c")
	require.True(t, ok)
	assert.Equal(t, diagram.NodeTypeGeneric, c.Type)
	assert.Equal(t, "rect", c.Properties["shape"])
	assert.Equal(t, 100.0, c.Width)
	b, _ := g.Node("b")
	assert.Equal(t, 110.0, b.Width)
	assert.Equal(t, 2, g.EdgeCount())

	var xml bytes.Buffer
	require.NoError(t, tb.Export(&xml, "bpmn"))
	assert.Contains(t, xml.String(), `<bpmn:startEvent id="a"`)
	assert.Contains(t, xml.String(), `<bpmn:exclusiveGateway id="b"`)
	assert.Contains(t, xml.String(), `<bpmn:task id="c"`)
	assert.Contains(t, xml.String(), `<bpmn:sequenceFlow id="cc" sourceRef="c" targetRef="c"`)
	assert.Contains(t, xml.String(), `<dc:Bounds x="245" y="65" width="110" height="70"/>`)
}

func TestToolbar_UndoAndClear(t *testing.T) {
	c := populated(t)
	tb := New(c)

	require.NoError(t, tb.Clear())
	assert.Equal(t, 0, c.NodeCount())
	require.NoError(t, tb.Undo())
	assert.Equal(t, 2, c.NodeCount())

	var got notices
	tb = New(canvas.New(), WithNotifier(got.notifier()))
	assert.ErrorIs(t, tb.Undo(), canvas.ErrNothingToUndo)
	assert.Len(t, got.failures(), 1)
}

func TestToolbar_Deploy(t *testing.T) {
	t.Run("exports the canvas", func(t *testing.T) {
		eng := &fakeEngine{}
		tb := New(populated(t), WithEngine(eng), WithProcessName("审批流程"))

		res, err := tb.Deploy(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "审批流程", eng.deployName)
		assert.Contains(t, eng.deployXML, `name="审批流程"`)
		assert.Contains(t, eng.deployXML, `id="s"`)
	})

	t.Run("empty canvas deploys the default process", func(t *testing.T) {
		eng := &fakeEngine{}
		tb := New(canvas.New(), WithEngine(eng))

		_, err := tb.Deploy(context.Background(), "custom")
		require.NoError(t, err)
		assert.Equal(t, "custom", eng.deployName)
		assert.Equal(t, bpmn.DefaultLeaveProcess(), eng.deployXML)
	})

	t.Run("engine failure is reported", func(t *testing.T) {
		var got notices
		eng := &fakeEngine{err: errors.New("refused")}
		tb := New(populated(t), WithEngine(eng), WithNotifier(got.notifier()))

		res, err := tb.Deploy(context.Background(), "")
		assert.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 500, res.StatusCode)
		assert.Len(t, got.failures(), 1)
	})

	t.Run("no engine", func(t *testing.T) {
		_, err := New(canvas.New()).Deploy(context.Background(), "")
		assert.ErrorIs(t, err, ErrNoEngine)
	})
}

func TestToolbar_Start(t *testing.T) {
	eng := &fakeEngine{}
	tb := New(canvas.New(), WithEngine(eng))

	req := engine.StartRequest{ProcessDefinitionKey: "leave", BusinessKey: "b-1"}
	res, err := tb.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "started", res.Body)
	assert.Equal(t, []engine.StartRequest{req}, eng.started)

	_, err = New(canvas.New()).Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoEngine)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := LogNotifier{Log: zap.New(core)}
	n.Notify(Notice{Action: "save", Message: "已保存"})
	n.Notify(Notice{Action: "load", Message: "加载失败", Err: errors.New("x")})
	LogNotifier{}.Notify(Notice{Message: "dropped"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
