package simd

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/metrics"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunExists    = errors.New("run already exists")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunStatus is the lifecycle state of a search run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// ParseRunStatus parses a status filter; unknown values return ""
func ParseRunStatus(s string) RunStatus {
	switch st := RunStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return st
	default:
		return ""
	}
}

// SearchRequest describes a search submitted to the daemon
type SearchRequest struct {
	RunID          string         `json:"run_id,omitempty"`
	Search         config.Search  `json:"search"`
	Scorer         *config.Scorer `json:"scorer,omitempty"`
	Wait           bool           `json:"wait,omitempty"`
	CallbackURL    string         `json:"callback_url,omitempty"`
	CallbackSecret string         `json:"callback_secret,omitempty"`
}

// SearchRun is the externally visible state of a run
type SearchRun struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	Strategy        string    `json:"strategy"`
	Objective       string    `json:"objective"`
	Done            int       `json:"done"`
	Total           int       `json:"total"` // -1 when the strategy cannot size itself
	Error           string    `json:"error,omitempty"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
}

// RunRecord pairs a run with its request and, once finished, its result.
// Records returned by the store are snapshots.
type RunRecord struct {
	Run     SearchRun                 `json:"run"`
	Request *SearchRequest            `json:"-"`
	Result  *improvement.SearchResult `json:"result,omitempty"`
	Metrics *metrics.Collector        `json:"-"`
}

// RunStore keeps search runs in memory
type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]*RunRecord
	order []string
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *RunStore) Create(runID string, req *SearchRequest, strategy, objective string, total int) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if strings.ContainsAny(runID, "/:") {
		return nil, fmt.Errorf("run id cannot contain '/' or ':': %s", runID)
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: SearchRun{
			ID:              runID,
			Status:          RunStatusPending,
			Strategy:        strategy,
			Objective:       objective,
			Total:           total,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Request: req,
	}
	s.runs[runID] = rec
	s.order = append(s.order, runID)
	return snapshot(rec), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return snapshot(rec), true
}

// List returns runs newest first, optionally filtered by status
func (s *RunStore) List(limit, offset int, status RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*RunRecord, 0, min(limit, len(s.runs)))
	skipped := 0
	for _, id := range slices.Backward(s.order) {
		rec := s.runs[id]
		if status != "" && rec.Run.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, snapshot(rec))
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() && rec.Run.Status != status {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		if rec.Run.EndedAtUnixMs == 0 {
			rec.Run.EndedAtUnixMs = nowUnixMs()
		}
	}

	return snapshot(rec), nil
}

func (s *RunStore) SetProgress(runID string, done, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Done = done
	rec.Run.Total = total
	return nil
}

// SetResult stores the (possibly partial) search result
func (s *RunStore) SetResult(runID string, result *improvement.SearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Result = result
	if result != nil {
		rec.Run.Done = len(result.Records)
	}
	return nil
}

// SetMetrics attaches the collector that receives the run's per-evaluation metrics
func (s *RunStore) SetMetrics(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Metrics = collector
	return nil
}

// snapshot copies the mutable run state; the result is never mutated once set
func snapshot(rec *RunRecord) *RunRecord {
	out := *rec
	return &out
}
