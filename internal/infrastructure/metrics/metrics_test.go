package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAction(t *testing.T) {
	okBefore := testutil.ToFloat64(actionsTotal.WithLabelValues("save", StatusOK))
	errBefore := testutil.ToFloat64(actionsTotal.WithLabelValues("save", StatusError))

	ObserveAction("save", time.Now(), nil)
	ObserveAction("save", time.Now(), errors.New("disk full"))
	ObserveAction("save", time.Now(), nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(actionsTotal.WithLabelValues("save", StatusOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(actionsTotal.WithLabelValues("save", StatusError)))
}

func TestObserveImport(t *testing.T) {
	before := testutil.ToFloat64(droppedEdgesTotal)
	ObserveImport(3, nil)
	ObserveImport(0, errors.New("malformed"))
	assert.Equal(t, before+3, testutil.ToFloat64(droppedEdgesTotal))
	assert.GreaterOrEqual(t, testutil.ToFloat64(importsTotal.WithLabelValues(StatusError)), 1.0)
}

func TestCountersAndGauge(t *testing.T) {
	before := testutil.ToFloat64(exportsTotal.WithLabelValues("bpmn"))
	IncExport("bpmn")
	assert.Equal(t, before+1, testutil.ToFloat64(exportsTotal.WithLabelValues("bpmn")))

	ObserveEngine("deploy", nil)
	assert.GreaterOrEqual(t, testutil.ToFloat64(engineRequestsTotal.WithLabelValues("deploy", StatusOK)), 1.0)

	SetLiveCanvases(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(liveCanvases))
}

func TestHandler(t *testing.T) {
	IncExport("json")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `flowdesigner_exports_total{format="json"}`)
	assert.Contains(t, string(body), "go_goroutines")
}
