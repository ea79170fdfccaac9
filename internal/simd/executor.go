package simd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/metrics"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/simulator"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// SearchExecutor runs searches asynchronously and manages per-run cancellation
type SearchExecutor struct {
	store    *RunStore
	sim      *simulator.Simulator
	scorer   config.Scorer
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
	plans   map[string]*searchPlan
}

type searchPlan struct {
	searcher *improvement.Searcher
	strategy improvement.Strategy
	workers  int
}

// NewSearchExecutor creates an executor scoring with scorer unless a request
// overrides it. notifier may be nil.
func NewSearchExecutor(store *RunStore, sim *simulator.Simulator, scorer config.Scorer, notifier *Notifier) *SearchExecutor {
	return &SearchExecutor{
		store:    store,
		sim:      sim,
		scorer:   scorer,
		notifier: notifier,
		cancels:  make(map[string]context.CancelFunc),
		done:     make(map[string]chan struct{}),
		plans:    make(map[string]*searchPlan),
	}
}

// Store returns the run store
func (e *SearchExecutor) Store() *RunStore {
	return e.store
}

// Simulate evaluates one configuration and scores it with the default objective
func (e *SearchExecutor) Simulate(cfg models.DeviceConfig) (*models.PerformanceKPIs, float64, error) {
	obj, err := improvement.ObjectiveFromConfig(e.scorer)
	if err != nil {
		return nil, 0, err
	}
	kpis, err := e.sim.Simulate(cfg)
	if err != nil {
		return nil, 0, err
	}
	return kpis, obj.Score(kpis), nil
}

// Submit validates req, registers a run and starts it. The search space is
// checked before the run exists, so malformed requests never produce a run.
func (e *SearchExecutor) Submit(req *SearchRequest) (*RunRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("search request is required")
	}
	plan, err := e.plan(req)
	if err != nil {
		return nil, err
	}
	rec, err := e.store.Create(req.RunID, req, plan.strategy.Name(), plan.searcher.Objective().Name(), improvement.CandidateCount(plan.strategy))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.plans[rec.Run.ID] = plan
	e.mu.Unlock()

	return e.Start(rec.Run.ID)
}

func (e *SearchExecutor) plan(req *SearchRequest) (*searchPlan, error) {
	search := req.Search
	if err := config.NormalizeSearch(&search); err != nil {
		return nil, err
	}
	scorer := e.scorer
	if req.Scorer != nil {
		scorer = *req.Scorer
	}
	if err := config.NormalizeScorer(&scorer); err != nil {
		return nil, err
	}

	strategy, err := improvement.StrategyFromConfig(search, e.sim.Catalog())
	if err != nil {
		return nil, err
	}
	searcher, err := improvement.SearcherFromConfig(e.sim, &config.Config{Scorer: scorer, Search: search})
	if err != nil {
		return nil, err
	}
	return &searchPlan{searcher: searcher, strategy: strategy, workers: search.Workers}, nil
}

// Start begins executing a pending run. Starting a running run is a no-op.
func (e *SearchExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}
	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Run.Status == RunStatusRunning:
		return rec, nil
	case rec.Run.Status.Terminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	// Register the cancel func before the run is visible as running so a
	// concurrent Stop always reaches it.
	e.mu.Lock()
	if _, started := e.cancels[runID]; started {
		e.mu.Unlock()
		return rec, nil
	}
	plan, ok := e.plans[runID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("run %s has no search plan", runID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[runID] = cancel
	e.done[runID] = make(chan struct{})
	e.mu.Unlock()

	updated, err := e.store.SetStatus(runID, RunStatusRunning, "")
	if err != nil {
		e.cleanup(runID)
		return nil, err
	}

	go e.runSearch(ctx, runID, plan)
	return updated, nil
}

// Stop cancels a running search and marks it cancelled
func (e *SearchExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	if !ok {
		delete(e.plans, runID)
	}
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return e.store.SetStatus(runID, RunStatusCancelled, "")
}

// Wait blocks until the run finishes or ctx is done, then returns its state
func (e *SearchExecutor) Wait(ctx context.Context, runID string) (*RunRecord, error) {
	e.mu.Lock()
	done, ok := e.done[runID]
	e.mu.Unlock()
	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	rec, found := e.store.Get(runID)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rec, nil
}

func (e *SearchExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	delete(e.plans, runID)
	if done, ok := e.done[runID]; ok {
		close(done)
		delete(e.done, runID)
	}
	e.mu.Unlock()
}

func (e *SearchExecutor) runSearch(ctx context.Context, runID string, plan *searchPlan) {
	defer e.notify(runID)
	defer e.cleanup(runID)

	collector := metrics.NewCollector()
	if err := e.store.SetMetrics(runID, collector); err != nil {
		logger.Warn("failed to attach metrics", "run_id", runID, "error", err)
	}
	defer collector.Stop()

	searcher := plan.searcher.WithProgressReporter(func(n, total int, rec models.ScoreRecord) {
		metrics.RecordEvaluation(collector, rec)
		if err := e.store.SetProgress(runID, n, total); err != nil {
			logger.Warn("failed to record progress", "run_id", runID, "error", err)
		}
	})

	logger.Info("search run started", "run_id", runID, "strategy", plan.strategy.Name(), "workers", plan.workers)

	var (
		result *improvement.SearchResult
		err    error
	)
	if plan.workers > 1 {
		result, err = searcher.RunParallel(ctx, plan.strategy, plan.workers)
	} else {
		result, err = searcher.Run(ctx, plan.strategy)
	}

	if result != nil {
		if setErr := e.store.SetResult(runID, result); setErr != nil {
			logger.Error("failed to store result", "run_id", runID, "error", setErr)
		}
	}

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		logger.Info("search run cancelled", "run_id", runID)
		e.setStatus(runID, RunStatusCancelled, "")
	case err != nil:
		logger.Error("search run failed", "run_id", runID, "error", err)
		e.setStatus(runID, RunStatusFailed, err.Error())
	case result.Best == nil:
		e.setStatus(runID, RunStatusFailed, "no configuration could be evaluated")
	default:
		e.setStatus(runID, RunStatusCompleted, "")
		logger.Info("search run completed", "run_id", runID,
			"best", result.Best.Config.String(),
			"score", result.Best.Score,
			"evaluated", result.Evaluated,
			"failed", result.Failed)
	}
}

// setStatus ignores transitions out of a terminal state, which happen when a
// run is stopped while its last evaluation is in flight
func (e *SearchExecutor) setStatus(runID string, status RunStatus, msg string) {
	if _, err := e.store.SetStatus(runID, status, msg); err != nil {
		if errors.Is(err, ErrRunTerminal) {
			logger.Debug("run already terminal", "run_id", runID, "status", status)
			return
		}
		logger.Error("failed to set run status", "run_id", runID, "status", status, "error", err)
	}
}

func (e *SearchExecutor) notify(runID string) {
	if e.notifier == nil {
		return
	}
	rec, ok := e.store.Get(runID)
	if !ok || rec.Request == nil {
		return
	}
	e.notifier.Notify(rec.Request.CallbackURL, rec.Request.CallbackSecret, rec)
}
