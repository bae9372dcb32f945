package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/adapters/storage/canvasrepo"
	"github.com/flowgraph/flowdesigner/internal/app/dto"
	"github.com/flowgraph/flowdesigner/internal/app/toolbar"
	"github.com/flowgraph/flowdesigner/internal/core/canvas"
	"github.com/flowgraph/flowdesigner/internal/core/diagram"
	"github.com/flowgraph/flowdesigner/internal/core/palette"
	"github.com/flowgraph/flowdesigner/internal/infrastructure/metrics"
	"github.com/flowgraph/flowdesigner/internal/render"
	"github.com/flowgraph/flowdesigner/pkg/bpmn"
	"github.com/flowgraph/flowdesigner/pkg/flowdesigner"
	"github.com/flowgraph/flowdesigner/pkg/validation"
)

type server struct {
	rt       *flowdesigner.Runtime
	canvases *canvasrepo.Repository
	log      *zap.Logger
	now      func() time.Time
}

func newServer(rt *flowdesigner.Runtime, log *zap.Logger) *server {
	return &server{
		rt:       rt,
		canvases: canvasrepo.New(canvas.WithLogger(log.Named("canvas"))),
		log:      log,
		now:      time.Now,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/palette", s.handlePalette)

	mux.HandleFunc("GET /api/canvases", s.handleListCanvases)
	mux.HandleFunc("GET /api/canvases/{canvasId}", s.withCanvas(s.handleGraph))
	mux.HandleFunc("DELETE /api/canvases/{canvasId}", s.handleDeleteCanvas)
	mux.HandleFunc("POST /api/canvases/{canvasId}/drop", s.withCanvas(s.handleDrop))
	mux.HandleFunc("POST /api/canvases/{canvasId}/edges", s.withCanvas(s.handleEdge))
	mux.HandleFunc("POST /api/canvases/{canvasId}/undo", s.withCanvas(s.handleUndo))
	mux.HandleFunc("POST /api/canvases/{canvasId}/clear", s.withCanvas(s.handleClear))
	mux.HandleFunc("POST /api/canvases/{canvasId}/save", s.withCanvas(s.handleSave))
	mux.HandleFunc("POST /api/canvases/{canvasId}/load", s.withCanvas(s.handleLoad))
	mux.HandleFunc("GET /api/canvases/{canvasId}/export", s.withCanvas(s.handleExport))
	mux.HandleFunc("POST /api/canvases/{canvasId}/import", s.withCanvas(s.handleImport))
	mux.HandleFunc("POST /api/canvases/{canvasId}/deploy", s.withCanvas(s.handleDeploy))
	mux.HandleFunc("POST /api/canvases/{canvasId}/start", s.withCanvas(s.handleStart))
	mux.HandleFunc("GET /api/canvases/{canvasId}/render.png", s.withCanvas(s.handleRender))
	return s.logRequests(mux)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := s.now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(started)))
	})
}

// canvasHandler serves one canvas together with a toolbar bound to it.
type canvasHandler func(w http.ResponseWriter, r *http.Request, c *canvas.Controller, tb *toolbar.Toolbar)

func (s *server) withCanvas(h canvasHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("canvasId")
		if id == "" {
			s.writeError(w, dto.ErrMissingCanvasID)
			return
		}
		c, err := s.canvases.GetOrCreate(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.updateLiveCanvases(r)
		h(w, r, c, s.rt.Toolbar(c, s.snapshotKey(id)))
	}
}

// snapshotKey gives each canvas its own slot under the configured key.
func (s *server) snapshotKey(id string) string {
	return s.rt.Config().Storage.Key + ":" + id
}

func (s *server) updateLiveCanvases(r *http.Request) {
	if ids, err := s.canvases.List(r.Context()); err == nil {
		metrics.SetLiveCanvases(len(ids))
	}
}

func (s *server) handlePalette(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, palette.Items())
}

func (s *server) handleListCanvases(w http.ResponseWriter, r *http.Request) {
	ids, err := s.canvases.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"canvases": ids})
}

func (s *server) handleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	if err := s.canvases.Delete(r.Context(), r.PathValue("canvasId")); err != nil {
		s.writeError(w, err)
		return
	}
	s.updateLiveCanvases(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeGraph(w http.ResponseWriter, status int, c *canvas.Controller) {
	d, err := c.GraphData()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, d.GraphData())
}

func (s *server) handleGraph(w http.ResponseWriter, _ *http.Request, c *canvas.Controller, _ *toolbar.Toolbar) {
	s.writeGraph(w, http.StatusOK, c)
}

func (s *server) handleDrop(w http.ResponseWriter, r *http.Request, c *canvas.Controller, _ *toolbar.Toolbar) {
	var req dto.DropRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	n, err := c.Drop(req.Payload, req.Pointer, req.Origin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n)
}

func (s *server) handleEdge(w http.ResponseWriter, r *http.Request, c *canvas.Controller, _ *toolbar.Toolbar) {
	var req dto.EdgeRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	e, err := c.AddEdge(&diagram.Edge{ID: req.ID, Source: req.Source, Target: req.Target, Text: req.Text})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, e)
}

func (s *server) handleUndo(w http.ResponseWriter, _ *http.Request, c *canvas.Controller, tb *toolbar.Toolbar) {
	if err := tb.Undo(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeGraph(w, http.StatusOK, c)
}

func (s *server) handleClear(w http.ResponseWriter, _ *http.Request, c *canvas.Controller, tb *toolbar.Toolbar) {
	if err := tb.Clear(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeGraph(w, http.StatusOK, c)
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request, _ *canvas.Controller, tb *toolbar.Toolbar) {
	resp, err := tb.Save(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLoad(w http.ResponseWriter, r *http.Request, c *canvas.Controller, tb *toolbar.Toolbar) {
	if _, err := tb.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeGraph(w, http.StatusOK, c)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request, _ *canvas.Controller, tb *toolbar.Toolbar) {
	format, err := dto.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tb.Export(&buf, format); err != nil {
		s.writeError(w, err)
		return
	}
	contentType := "application/xml"
	if format == dto.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": toolbar.FileName(format, s.now())}))
	_, _ = w.Write(buf.Bytes())
}

// handleImport accepts either {"xml": "..."} or the raw document.
func (s *server) handleImport(w http.ResponseWriter, r *http.Request, c *canvas.Controller, tb *toolbar.Toolbar) {
	var req dto.ImportRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := validation.DecodeJSON(r.Body, &req); err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, validation.MaxBodyBytes))
		if err != nil {
			s.writeError(w, err)
			return
		}
		req.XML = string(body)
		if err := req.Validate(); err != nil {
			s.writeError(w, err)
			return
		}
	}

	report, err := tb.Import(req.XML)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := c.GraphData()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.ImportResponse{Graph: d.GraphData(), Report: report})
}

func (s *server) handleDeploy(w http.ResponseWriter, r *http.Request, _ *canvas.Controller, tb *toolbar.Toolbar) {
	var req dto.DeployRequest
	if r.ContentLength != 0 {
		if err := validation.DecodeJSON(r.Body, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	res, err := tb.Deploy(r.Context(), req.ProcessName)
	s.writeEngine(w, res, err)
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request, _ *canvas.Controller, tb *toolbar.Toolbar) {
	var req dto.StartRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := tb.Start(r.Context(), engine.StartRequest{
		ProcessDefinitionKey: req.ProcessDefinitionKey,
		BusinessKey:          req.BusinessKey,
		Variables:            req.Variables,
	})
	s.writeEngine(w, res, err)
}

// writeEngine relays the engine's answer; a rejected request still carries
// the engine's status and body.
func (s *server) writeEngine(w http.ResponseWriter, res *engine.Result, err error) {
	if err != nil && res == nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, dto.EngineResponse{StatusCode: res.StatusCode, Body: res.Body})
}

func (s *server) handleRender(w http.ResponseWriter, _ *http.Request, c *canvas.Controller, _ *toolbar.Toolbar) {
	d, err := c.GraphData()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.PNG(&buf, d); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	resp := dto.ErrorResponse{Error: err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	s.writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, dto.ErrMissingCanvasID),
		errors.Is(err, dto.ErrMissingPayload),
		errors.Is(err, dto.ErrEmptyDocument),
		errors.Is(err, dto.ErrUnknownFormat),
		errors.Is(err, dto.ErrInvalidPosition),
		errors.Is(err, canvas.ErrInvalidPosition),
		errors.Is(err, canvasrepo.ErrInvalidCanvasID),
		errors.Is(err, palette.ErrInvalidPayload),
		errors.Is(err, bpmn.ErrMalformedXML),
		errors.Is(err, bpmn.ErrMissingProcess),
		errors.Is(err, bpmn.ErrMissingPlane),
		errors.Is(err, engine.ErrMissingKey),
		errors.Is(err, diagram.ErrInvalidNodeID),
		errors.Is(err, diagram.ErrInvalidNodeType),
		errors.Is(err, diagram.ErrInvalidEdgeID),
		errors.Is(err, diagram.ErrInvalidSource),
		errors.Is(err, diagram.ErrInvalidTarget),
		errors.Is(err, diagram.ErrSourceNodeNotFound),
		errors.Is(err, diagram.ErrTargetNodeNotFound):
		return http.StatusBadRequest
	case errors.Is(err, canvasrepo.ErrCanvasNotFound),
		errors.Is(err, toolbar.ErrNoSavedDiagram),
		errors.Is(err, diagram.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, diagram.ErrDuplicateNode),
		errors.Is(err, diagram.ErrDuplicateEdge),
		errors.Is(err, canvas.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, toolbar.ErrCorruptSave):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrRequestFailed),
		errors.Is(err, engine.ErrUnexpectedStatus):
		return http.StatusBadGateway
	case errors.Is(err, toolbar.ErrNoEngine):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
