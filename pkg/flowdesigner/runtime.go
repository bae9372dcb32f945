package flowdesigner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/app/toolbar"
	"github.com/flowgraph/flowdesigner/internal/config"
	"github.com/flowgraph/flowdesigner/internal/core/canvas"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/pkg/serialization"
)

// Re-export the diagram model for convenience
type Diagram = diagram.Diagram
type Node = diagram.Node
type Edge = diagram.Edge
type Point = diagram.Point
type NodeType = diagram.NodeType

// Runtime holds the dependencies shared by every canvas: the snapshot
// store, the serializer and the engine client.
type Runtime struct {
	cfg        *config.Config
	log        *zap.Logger
	store      Store
	serializer *serialization.Serializer
	engine     *engine.Client
}

// NewRuntime wires a runtime from cfg. A nil cfg means config.Default()
// and a nil logger means no logging.
func NewRuntime(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	ser, err := serialization.FromNames(cfg.Storage.Codec, cfg.Storage.Compression)
	if err != nil {
		return nil, fmt.Errorf("storage serializer: %w", err)
	}
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return &Runtime{
		cfg:        cfg,
		log:        log,
		store:      store,
		serializer: ser,
		engine: engine.NewClient(cfg.Engine.BaseURL,
			engine.WithTimeout(cfg.Engine.Timeout),
			engine.WithLogger(log.Named("engine"))),
	}, nil
}

// NewDefaultRuntime is an in-memory runtime suitable for local usage and tests.
func NewDefaultRuntime() *Runtime {
	rt, err := NewRuntime(context.Background(), nil, nil)
	if err != nil {
		// the default config only selects in-memory components
		panic(err)
	}
	return rt
}

// Config returns the configuration the runtime was built from.
func (rt *Runtime) Config() *config.Config { return rt.cfg }

// Store returns the shared snapshot store.
func (rt *Runtime) Store() Store { return rt.store }

// Toolbar binds toolbar actions on c to the runtime's dependencies. An empty
// key uses the configured snapshot key.
func (rt *Runtime) Toolbar(c toolbar.Canvas, key string) *toolbar.Toolbar {
	if key == "" {
		key = rt.cfg.Storage.Key
	}
	return toolbar.New(c,
		toolbar.WithStore(rt.store),
		toolbar.WithSerializer(rt.serializer),
		toolbar.WithEngine(rt.engine),
		toolbar.WithLogger(rt.log.Named("toolbar")),
		toolbar.WithKey(key),
		toolbar.WithProcessName(rt.cfg.Engine.ProcessName),
	)
}

// Designer is one canvas together with its toolbar.
type Designer struct {
	*canvas.Controller
	Toolbar *toolbar.Toolbar
}

// NewDesigner creates an empty canvas saved under the configured key.
func (rt *Runtime) NewDesigner(opts ...canvas.Option) *Designer {
	opts = append([]canvas.Option{canvas.WithLogger(rt.log.Named("canvas"))}, opts...)
	c := canvas.New(opts...)
	return &Designer{Controller: c, Toolbar: rt.Toolbar(c, "")}
}

// Close releases the snapshot store.
func (rt *Runtime) Close() error {
	return rt.store.Close()
}
