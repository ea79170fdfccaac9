package simd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/metrics"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/policy"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

const maxRequestBytes = 1 << 20

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	limiter  policy.RateLimitingPolicy
	Executor *SearchExecutor
}

func NewHTTPServer(executor *SearchExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    executor.Store(),
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/materials", s.handleMaterials)
	s.mux.HandleFunc("/v1/simulate", s.handleSimulate)
	s.mux.HandleFunc("/v1/searches", s.handleSearches)
	s.mux.HandleFunc("/v1/searches/", s.handleSearchByID)

	return s
}

// WithRateLimit bounds how fast one client may submit simulations and
// searches. A nil policy disables limiting.
func (s *HTTPServer) WithRateLimit(limiter policy.RateLimitingPolicy) *HTTPServer {
	s.limiter = limiter
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

// allow reports whether the client may submit work now, writing 429 when not
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	client := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		client = host
	}
	now := time.Now()
	if s.limiter.AllowRequest(client, now) {
		return true
	}
	wait := s.limiter.RetryAfter(client, now)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	logger.Debug("rate limited", "client", client, "path", r.URL.Path, "retry_after", wait)
	s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMaterials handles GET /v1/materials, optionally filtered by ?sourcing=
func (s *HTTPServer) handleMaterials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	catalog := s.Executor.sim.Catalog()
	specs := catalog.Specs()
	if src := r.URL.Query().Get("sourcing"); src != "" {
		keep := make(map[string]bool)
		for _, name := range catalog.FilterBySourcing(models.Sourcing(strings.ToLower(src))) {
			keep[name] = true
		}
		filtered := specs[:0]
		for _, spec := range specs {
			if keep[spec.Name] {
				filtered = append(filtered, spec)
			}
		}
		specs = filtered
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"materials": specs,
	})
}

type simulateRequest struct {
	Config       *models.DeviceConfig `json:"config"`
	IncludeCurve bool                 `json:"include_curve,omitempty"`
}

// handleSimulate handles POST /v1/simulate
func (s *HTTPServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allow(w, r) {
		return
	}
	var req simulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Config == nil {
		s.writeError(w, http.StatusBadRequest, "config is required")
		return
	}

	kpis, score, err := s.Executor.Simulate(*req.Config)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	if !req.IncludeCurve {
		kpis.Curve = nil
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"config":     req.Config,
		"kpis":       kpis,
		"score":      score,
		"degenerate": kpis.Degenerate(),
	})
}

// handleSearches handles /v1/searches
func (s *HTTPServer) handleSearches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if s.allow(w, r) {
			s.handleCreateSearch(w, r)
		}
	case http.MethodGet:
		s.handleListSearches(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSearchByID handles /v1/searches/{id} and its sub-resources
func (s *HTTPServer) handleSearchByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/searches/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "search ID is required")
		return
	}

	type route struct {
		suffix  string
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	routes := []route{
		{":stop", http.MethodPost, s.handleStopSearch},
		{"/records", http.MethodGet, s.handleSearchRecords},
		{"/summary", http.MethodGet, s.handleSearchSummary},
		{"/metrics", http.MethodGet, s.handleSearchMetrics},
		{"/stream", http.MethodGet, s.handleSearchStream},
	}
	for _, rt := range routes {
		if !strings.HasSuffix(path, rt.suffix) {
			continue
		}
		if r.Method != rt.method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.handler(w, r, strings.TrimSuffix(path, rt.suffix))
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetSearch(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateSearch handles POST /v1/searches. With "wait": true the
// response is held until the run finishes or the client goes away.
func (s *HTTPServer) handleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.Executor.Submit(&req)
	if err != nil {
		if errors.Is(err, ErrRunExists) {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	logger.Info("search created (HTTP)", "run_id", rec.Run.ID, "strategy", rec.Run.Strategy, "candidates", rec.Run.Total)

	if !req.Wait {
		s.writeJSON(w, http.StatusCreated, map[string]any{"run": rec.Run})
		return
	}
	done, err := s.Executor.Wait(r.Context(), rec.Run.ID)
	if err != nil {
		s.writeJSON(w, http.StatusAccepted, map[string]any{"run": rec.Run})
		return
	}
	s.writeJSON(w, http.StatusOK, searchView(done))
}

// handleListSearches handles GET /v1/searches with pagination and filtering
func (s *HTTPServer) handleListSearches(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 1000)
	offset := max(queryInt(r, "offset", 0), 0)
	status := ParseRunStatus(r.URL.Query().Get("status"))

	runs := s.store.List(limit, offset, status)
	out := make([]SearchRun, 0, len(runs))
	for _, rec := range runs {
		out = append(out, rec.Run)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"searches": out,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(out),
		},
	})
}

// handleGetSearch handles GET /v1/searches/{id}
func (s *HTTPServer) handleGetSearch(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}
	s.writeJSON(w, http.StatusOK, searchView(rec))
}

// handleSearchRecords handles GET /v1/searches/{id}/records.
// ?top=N ranks the N best records; ?group=material keeps the best per material.
func (s *HTTPServer) handleSearchRecords(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}
	if rec.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, "records not available")
		return
	}

	records := rec.Result.Records
	if r.URL.Query().Get("group") == "material" {
		records = improvement.BestPerMaterial(records)
	}
	if top := queryInt(r, "top", 0); top > 0 {
		records = improvement.TopN(records, top)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"records": records,
	})
}

// handleSearchSummary handles GET /v1/searches/{id}/summary
func (s *HTTPServer) handleSearchSummary(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}
	if rec.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, "records not available")
		return
	}
	summary, err := improvement.Summarize(rec.Result.Records)
	if err != nil {
		s.writeError(w, http.StatusPreconditionFailed, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"summary": summary,
	})
}

// handleSearchMetrics handles GET /v1/searches/{id}/metrics. Running searches
// report the evaluations seen so far.
func (s *HTTPServer) handleSearchMetrics(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}
	if rec.Metrics == nil {
		s.writeError(w, http.StatusPreconditionFailed, "search has not started")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"status":  rec.Run.Status,
		"metrics": metrics.BuildReport(rec.Metrics),
	})
}

// handleStopSearch handles POST /v1/searches/{id}:stop
func (s *HTTPServer) handleStopSearch(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	logger.Info("search cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{"run": updated.Run})
}

// handleSearchStream handles GET /v1/searches/{id}/stream (SSE progress events)
func (s *HTTPServer) handleSearchStream(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "search not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	interval := time.Second
	if ms := queryInt(r, "interval_ms", 0); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}

	s.sendSSEEvent(w, "progress", progressEvent(rec))
	if rec.Run.Status.Terminal() {
		s.sendSSEEvent(w, "complete", searchView(rec))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := rec.Run

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			rec, ok := s.store.Get(runID)
			if !ok {
				s.sendSSEEvent(w, "error", map[string]any{"error": "search not found"})
				return
			}
			if rec.Run.Done != last.Done || rec.Run.Status != last.Status {
				s.sendSSEEvent(w, "progress", progressEvent(rec))
				last = rec.Run
			}
			if rec.Run.Status.Terminal() {
				s.sendSSEEvent(w, "complete", searchView(rec))
				return
			}
		}
	}
}

func progressEvent(rec *RunRecord) map[string]any {
	return map[string]any{
		"status": rec.Run.Status,
		"done":   rec.Run.Done,
		"total":  rec.Run.Total,
	}
}

func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to marshal SSE event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// searchView is the JSON shape of a search without its record list
func searchView(rec *RunRecord) map[string]any {
	view := map[string]any{"run": rec.Run}
	if res := rec.Result; res != nil {
		view["best"] = res.Best
		view["evaluated"] = res.Evaluated
		view["failed"] = res.Failed
		view["degenerate"] = res.Degenerate
		if res.Stopped != "" {
			view["stopped"] = res.Stopped
		}
		view["duration_ms"] = res.Duration.Milliseconds()
	}
	return view
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMaterialNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
