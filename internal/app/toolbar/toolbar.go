// Package toolbar implements the editor's toolbar actions on top of a
// canvas: save and load through a snapshot store, BPMN export and import,
// undo, clear, and deploy/start against a workflow engine. Every failure is
// returned and also handed to the Notifier.
package toolbar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/adapters/storage/memory"
	"github.com/flowgraph/flowdesigner/internal/app/dto"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/snapshot"
	"github.com/flowgraph/flowdesigner/internal/infrastructure/metrics"
	"github.com/flowgraph/flowdesigner/pkg/bpmn"
	"github.com/flowgraph/flowdesigner/pkg/serialization"
)

// DefaultProcessName is deployed when no name is given.
const DefaultProcessName = bpmn.LeaveProcessName

// Toolbar binds actions to one canvas.
type Toolbar struct {
	canvas      Canvas
	store       snapshot.Store
	serializer  *serialization.Serializer
	engine      Engine
	notifier    Notifier
	log         *zap.Logger
	key         string
	processName string
	now         func() time.Time
}

// Option configures a Toolbar.
type Option func(*Toolbar)

// WithStore sets where snapshots are saved.
func WithStore(s snapshot.Store) Option {
	return func(t *Toolbar) { t.store = s }
}

// WithSerializer sets how saves are encoded.
func WithSerializer(s *serialization.Serializer) Option {
	return func(t *Toolbar) { t.serializer = s }
}

// WithEngine enables Deploy and Start.
func WithEngine(e Engine) Option {
	return func(t *Toolbar) { t.engine = e }
}

// WithNotifier replaces the default log notifier that reports action
// outcomes to the user.
func WithNotifier(n Notifier) Option {
	return func(t *Toolbar) { t.notifier = n }
}

// WithClock replaces time.Now for export file names.
func WithClock(now func() time.Time) Option {
	return func(t *Toolbar) { t.now = now }
}

// WithLogger sets the logger; the default notifier logs through it too.
func WithLogger(l *zap.Logger) Option {
	return func(t *Toolbar) {
		if l != nil {
			t.log = l
		}
	}
}

// WithKey overrides the snapshot slot.
func WithKey(key string) Option {
	return func(t *Toolbar) {
		if key != "" {
			t.key = key
		}
	}
}

// WithProcessName sets the name deploys use when the caller gives none.
func WithProcessName(name string) Option {
	return func(t *Toolbar) {
		if name != "" {
			t.processName = name
		}
	}
}

// New creates a toolbar for c. Without options it saves to an in-memory
// store in plain JSON and has no engine.
func New(c Canvas, opts ...Option) *Toolbar {
	t := &Toolbar{
		canvas:      c,
		log:         zap.NewNop(),
		key:         snapshot.DefaultKey,
		processName: DefaultProcessName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store == nil {
		t.store = memory.New(memory.Config{})
	}
	if t.serializer == nil {
		t.serializer = serialization.DefaultSerializer()
	}
	if t.notifier == nil {
		t.notifier = LogNotifier{Log: t.log}
	}
	return t
}

func observe(action string, started time.Time, err *error) {
	metrics.ObserveAction(action, started, *err)
}

func (t *Toolbar) fail(action, msg string, err error) error {
	t.notifier.Notify(Notice{Action: action, Message: msg, Err: err})
	return err
}

func (t *Toolbar) ok(action, msg string) {
	t.notifier.Notify(Notice{Action: action, Message: msg})
}

// Save logs the graph data and stores it under the configured key.
func (t *Toolbar) Save(ctx context.Context) (resp *dto.SaveResponse, err error) {
	defer observe("save", time.Now(), &err)

	d, err := t.canvas.GraphData()
	if err != nil {
		return nil, t.fail("save", "保存失败", err)
	}
	t.log.Info("graph data", zap.Any("graph", d.GraphData()))

	data, err := t.serializer.EncodeDiagram(d)
	if err != nil {
		return nil, t.fail("save", "保存失败", err)
	}
	snap := &snapshot.Snapshot{
		Key:         t.key,
		DiagramID:   d.ID,
		Name:        d.Name,
		Data:        data,
		Codec:       t.serializer.CodecName(),
		Compression: t.serializer.CompressionName(),
		NodeCount:   d.NodeCount(),
		EdgeCount:   d.EdgeCount(),
	}
	if err = t.store.Save(ctx, snap); err != nil {
		return nil, t.fail("save", "保存失败", err)
	}
	t.ok("save", "已保存")
	return &dto.SaveResponse{
		Key:         snap.Key,
		Nodes:       snap.NodeCount,
		Edges:       snap.EdgeCount,
		Bytes:       len(data),
		Codec:       snap.Codec,
		Compression: snap.Compression,
	}, nil
}

// Load replaces the canvas with the saved snapshot. The canvas is left
// alone when nothing is saved or the snapshot cannot be decoded.
func (t *Toolbar) Load(ctx context.Context) (d *diagram.Diagram, err error) {
	defer observe("load", time.Now(), &err)

	snap, err := t.store.Load(ctx, t.key)
	if errors.Is(err, snapshot.ErrSnapshotNotFound) {
		err = ErrNoSavedDiagram
		return nil, t.fail("load", "没有保存的数据", err)
	}
	if err != nil {
		return nil, t.fail("load", "加载失败", err)
	}

	s, err := serialization.FromNames(snap.Codec, snap.Compression)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCorruptSave, err)
		return nil, t.fail("load", "数据解析失败", err)
	}
	d, err = s.DecodeDiagram(snap.Data)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrCorruptSave, err)
		return nil, t.fail("load", "数据解析失败", err)
	}
	if err = t.canvas.Render(d); err != nil {
		return nil, t.fail("load", "加载失败", err)
	}
	t.ok("load", "已加载")
	return d, nil
}

// Export writes the canvas in the given format: BPMN XML by default, or
// the raw graph JSON.
func (t *Toolbar) Export(w io.Writer, format string) (err error) {
	defer observe("export", time.Now(), &err)

	format, err = dto.ParseFormat(format)
	if err != nil {
		return t.fail("export", "导出失败", err)
	}
	d, err := t.canvas.GraphData()
	if err != nil {
		return t.fail("export", "导出失败", err)
	}

	var out []byte
	switch format {
	case dto.FormatJSON:
		out, err = json.MarshalIndent(d.GraphData(), "", "  ")
	default:
		var doc string
		doc, err = bpmn.Export(d)
		out = []byte(doc)
	}
	if err != nil {
		return t.fail("export", "导出失败", err)
	}
	if _, err = w.Write(out); err != nil {
		return t.fail("export", "导出失败", err)
	}
	metrics.IncExport(format)
	return nil
}

// FileName is the download name for an export taken at now.
func FileName(format string, now time.Time) string {
	ext := ".bpmn"
	if format == dto.FormatJSON {
		ext = ".json"
	}
	return fmt.Sprintf("diagram_%d%s", now.UnixMilli(), ext)
}

// ExportFile writes an export into dir and returns the file path.
func (t *Toolbar) ExportFile(dir, format string) (string, error) {
	parsed, err := dto.ParseFormat(format)
	if err != nil {
		return "", t.fail("export", "导出失败", err)
	}
	path := filepath.Join(dir, FileName(parsed, t.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", t.fail("export", "导出失败", err)
	}
	if err := t.Export(f, parsed); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", t.fail("export", "导出失败", err)
	}
	return path, nil
}

// Import parses a BPMN document and, only if that succeeds, renders it
// onto the canvas.
func (t *Toolbar) Import(doc string) (report *bpmn.Report, err error) {
	defer observe("import", time.Now(), &err)

	d, report, err := bpmn.Import(doc)
	if err != nil {
		metrics.ObserveImport(0, err)
		return nil, t.fail("import", "BPMN 解析失败", err)
	}
	for _, w := range report.Warnings {
		t.log.Warn("import", zap.String("warning", w))
	}
	if err = t.canvas.Render(d); err != nil {
		return nil, t.fail("import", "导入失败", err)
	}
	metrics.ObserveImport(len(report.DroppedEdges), nil)
	t.ok("import", "导入成功")
	return report, nil
}

// ImportJSON loads graph-data JSON onto the canvas.
func (t *Toolbar) ImportJSON(data []byte) (err error) {
	defer observe("import_json", time.Now(), &err)

	d, err := diagram.FromJSON(data)
	if err != nil {
		return t.fail("import", "JSON 解析失败", err)
	}
	if err = t.canvas.Render(d); err != nil {
		return t.fail("import", "导入失败", err)
	}
	return nil
}

// Undo reverts the last canvas change.
func (t *Toolbar) Undo() (err error) {
	defer observe("undo", time.Now(), &err)
	if err = t.canvas.Undo(); err != nil {
		return t.fail("undo", "无法撤销", err)
	}
	return nil
}

// Clear empties the canvas.
func (t *Toolbar) Clear() (err error) {
	defer observe("clear", time.Now(), &err)
	if err = t.canvas.Clear(); err != nil {
		return t.fail("clear", "清空失败", err)
	}
	return nil
}

// Deploy exports the canvas and posts it to the engine. An empty canvas
// deploys the built-in leave-request process instead.
func (t *Toolbar) Deploy(ctx context.Context, processName string) (res *engine.Result, err error) {
	defer observe("deploy", time.Now(), &err)
	defer func() { metrics.ObserveEngine("deploy", err) }()

	if t.engine == nil {
		return nil, t.fail("deploy", "部署失败", ErrNoEngine)
	}
	if processName == "" {
		processName = t.processName
	}

	d, err := t.canvas.GraphData()
	if err != nil {
		return nil, t.fail("deploy", "部署失败", err)
	}
	var doc string
	if d.NodeCount() == 0 {
		t.log.Info("canvas is empty, deploying default process")
		doc = bpmn.DefaultLeaveProcess()
	} else if doc, err = bpmn.Export(d, bpmn.ExportOptions{ProcessName: processName}); err != nil {
		return nil, t.fail("deploy", "部署失败", err)
	}

	res, err = t.engine.Deploy(ctx, processName, doc)
	if err != nil {
		return res, t.fail("deploy", "部署失败", err)
	}
	t.ok("deploy", "部署成功")
	return res, nil
}

// Start launches a process instance on the engine.
func (t *Toolbar) Start(ctx context.Context, req engine.StartRequest) (res *engine.Result, err error) {
	defer observe("start", time.Now(), &err)
	defer func() { metrics.ObserveEngine("start", err) }()

	if t.engine == nil {
		return nil, t.fail("start", "启动失败", ErrNoEngine)
	}
	res, err = t.engine.Start(ctx, req)
	if err != nil {
		return res, t.fail("start", "启动失败", err)
	}
	t.ok("start", "流程已启动")
	return res, nil
}
