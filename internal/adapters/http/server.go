// Package http exposes the tool-call pipeline over a JSON HTTP API.
//
// This is the endpoint the browser-side realtime client posts tool calls to:
// the webhook must be invoked server-side (CORS, credentials, idempotency
// tracking), so the frontend relays every tool_call event here and sends the
// structured result back to the conversational engine.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline defines the interface for the tool-call orchestration core.
type Pipeline interface {
	Handle(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult
	Stats() orchestrator.PipelineStats
	ResetExecution(identity string) bool
}

// Server implements the HTTP surface around a Pipeline.
type Server struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler for the pipeline. The gatherer serves
// /metrics; pass nil to disable the endpoint.
func NewHandler(pipeline Pipeline, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	server := &Server{pipeline: pipeline, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", server.health)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Post("/execute-intent", server.executeIntent)
		r.Route("/debug", func(r chi.Router) {
			r.Get("/pipeline-stats", server.pipelineStats)
			r.Post("/executions/{identity}/reset", server.resetExecution)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// executeIntent handles POST /api/execute-intent.
// The pipeline itself never errors: malformed tool arguments come back as a
// structured retryable result, so only an unreadable envelope is a 400 here.
func (s *Server) executeIntent(w http.ResponseWriter, r *http.Request) {
	var req domain.ToolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ToolName == "" {
		http.Error(w, "tool_name is required", http.StatusBadRequest)
		return
	}

	result := s.pipeline.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// pipelineStats handles GET /api/debug/pipeline-stats.
func (s *Server) pipelineStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Stats())
}

// resetExecution handles POST /api/debug/executions/{identity}/reset.
// Purging permits a genuine duplicate external call; debug use only.
func (s *Server) resetExecution(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	reset := s.pipeline.ResetExecution(identity)
	status := http.StatusOK
	if !reset {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"identity": identity, "reset": reset})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
