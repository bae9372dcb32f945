// Package metrics holds the Prometheus collectors for toolbar actions, the
// BPMN codec and engine calls. Collectors live on a private registry served
// by Handler so tests and embedding programs do not collide with the default
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	labelAction = "action"
	labelStatus = "status"
	labelFormat = "format"

	StatusOK    = "ok"
	StatusError = "error"
)

// Registry is where every flowdesigner collector is registered.
var Registry = prometheus.NewRegistry()

var (
	actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowdesigner_actions_total",
		Help: "Toolbar actions by outcome",
	}, []string{labelAction, labelStatus})

	actionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowdesigner_action_duration_seconds",
		Help:    "Toolbar action latency",
		Buckets: prometheus.DefBuckets,
	}, []string{labelAction})

	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowdesigner_exports_total",
		Help: "Diagrams exported, by format",
	}, []string{labelFormat})

	importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowdesigner_imports_total",
		Help: "BPMN imports by outcome",
	}, []string{labelStatus})

	droppedEdgesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flowdesigner_import_dropped_edges_total",
		Help: "Sequence flows dropped on import because an endpoint was missing",
	})

	engineRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowdesigner_engine_requests_total",
		Help: "Workflow engine calls by operation and outcome",
	}, []string{labelAction, labelStatus})

	liveCanvases = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowdesigner_live_canvases",
		Help: "Canvases held in memory by the server",
	})
)

func init() {
	Registry.MustRegister(
		actionsTotal,
		actionDuration,
		exportsTotal,
		importsTotal,
		droppedEdgesTotal,
		engineRequestsTotal,
		liveCanvases,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// ObserveAction records one toolbar action.
func ObserveAction(action string, started time.Time, err error) {
	actionsTotal.WithLabelValues(action, status(err)).Inc()
	actionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

// IncExport counts an export in the given format.
func IncExport(format string) { exportsTotal.WithLabelValues(format).Inc() }

// ObserveImport counts an import and the edges it had to drop.
func ObserveImport(dropped int, err error) {
	importsTotal.WithLabelValues(status(err)).Inc()
	if dropped > 0 {
		droppedEdgesTotal.Add(float64(dropped))
	}
}

// ObserveEngine counts a deploy or start call.
func ObserveEngine(op string, err error) {
	engineRequestsTotal.WithLabelValues(op, status(err)).Inc()
}

// SetLiveCanvases reports how many canvases the server holds.
func SetLiveCanvases(n int) { liveCanvases.Set(float64(n)) }

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
