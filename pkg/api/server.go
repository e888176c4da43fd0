// Package api exposes the telemetry daemon over HTTP: completion lifecycle
// notifications in, aggregated statistics out.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wilhg/ghostd/pkg/errmodel"
	"github.com/wilhg/ghostd/pkg/metrics"
	"github.com/wilhg/ghostd/pkg/snippet"
	"github.com/wilhg/ghostd/pkg/telemetry"
	"github.com/wilhg/ghostd/pkg/tokenizer"
)

// Server routes lifecycle notifications into the tracker and serves the
// aggregated statistics back out.
type Server struct {
	tracker     *snippet.Tracker
	snippets    *snippet.Store
	tokens      *tokenizer.Cache
	robotHuman  *telemetry.RobotHuman
	completions *telemetry.CompCounters
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics attaches process metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAPILogger sets the server's logger.
func WithAPILogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer wires the HTTP surface around its collaborators. robotHuman and
// completions may be nil; their stats sections are then omitted.
func NewServer(tracker *snippet.Tracker, store *snippet.Store, tokens *tokenizer.Cache,
	robotHuman *telemetry.RobotHuman, completions *telemetry.CompCounters, opts ...Option) *Server {
	s := &Server{
		tracker:     tracker,
		snippets:    store,
		tokens:      tokens,
		robotHuman:  robotHuman,
		completions: completions,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/completion-served", s.handleCompletionServed)
	mux.HandleFunc("POST /v1/completion-accepted", s.handleCompletionAccepted)
	mux.HandleFunc("POST /v1/file-changed", s.handleFileChanged)
	mux.HandleFunc("GET /v1/count-tokens", s.handleCountTokens)
	mux.HandleFunc("GET /v1/telemetry-stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return otelhttp.NewHandler(s.withRequestLog(mux), "ghostd.api")
}

// statusWriter captures the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withRequestLog assigns each request an id and logs method, path, status
// and latency once the handler returns.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type completionServedRequest struct {
	Model         string         `json:"model"`
	Inputs        snippet.Inputs `json:"inputs"`
	SuggestedText string         `json:"suggested_text"`
	FinishReason  string         `json:"finish_reason"`
}

func (s *Server) handleCompletionServed(w http.ResponseWriter, r *http.Request) {
	var req completionServedRequest
	if err := decodeValidated(r.Body, completionServedSchema, &req); err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	id, tracked := s.tracker.CompletionServed(req.Model, req.Inputs, req.SuggestedText, req.FinishReason)
	if tracked && s.metrics != nil {
		s.metrics.CompletionsServed.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snippet_telemetry_id": id,
		"tracked":              tracked,
	})
}

type completionAcceptedRequest struct {
	SnippetTelemetryID uint64 `json:"snippet_telemetry_id"`
}

func (s *Server) handleCompletionAccepted(w http.ResponseWriter, r *http.Request) {
	var req completionAcceptedRequest
	if err := decodeValidated(r.Body, completionAcceptedSchema, &req); err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	if !s.tracker.CompletionAccepted(req.SnippetTelemetryID) {
		errmodel.WriteHTTP(w, r, errmodel.NotFound("unknown or already finished snippet",
			map[string]any{"snippet_telemetry_id": req.SnippetTelemetryID}))
		return
	}
	if s.metrics != nil {
		s.metrics.CompletionsAccepted.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
}

type fileChangedRequest struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

func (s *Server) handleFileChanged(w http.ResponseWriter, r *http.Request) {
	var req fileChangedRequest
	if err := decodeValidated(r.Body, fileChangedSchema, &req); err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	s.tracker.FileChanged(req.URI, req.Text)
	if s.metrics != nil {
		s.metrics.FileChanges.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	text := r.URL.Query().Get("text")
	n, err := s.tokens.CountTokens(model, text)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":  model,
		"tokens": n,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"snippets_tracked": s.snippets.Len(),
	}
	if s.robotHuman != nil {
		out["robot_human"] = s.robotHuman.Stats()
	}
	if s.completions != nil {
		out["completions"] = s.completions.Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
