package improvement

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/simulator"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// ProgressReporter is called after every evaluation with the number of
// records produced so far and the total expected, or -1 when the strategy
// cannot report its size up front
type ProgressReporter func(done, total int, record models.ScoreRecord)

// Searcher evaluates the configurations a Strategy proposes and keeps the best.
// A Searcher is safe for concurrent use once configured.
type Searcher struct {
	sim       *simulator.Simulator
	objective Objective
	stop      StopCondition
	progress  ProgressReporter
	log       *slog.Logger
	keepCurve bool
}

// SearchResult is the outcome of a search
type SearchResult struct {
	Strategy   string               `json:"strategy"`
	Objective  string               `json:"objective"`
	Best       *models.ScoreRecord  `json:"best,omitempty"`
	Records    []models.ScoreRecord `json:"records"`
	Evaluated  int                  `json:"evaluated"`
	Failed     int                  `json:"failed"`
	Degenerate int                  `json:"degenerate"`
	Stopped    string               `json:"stopped,omitempty"`
	Duration   time.Duration        `json:"duration_ns"`
}

// NewSearcher creates a searcher scoring with objective
func NewSearcher(sim *simulator.Simulator, objective Objective) *Searcher {
	return &Searcher{
		sim:       sim,
		objective: objective,
		log:       logger.Component("search"),
	}
}

// WithProgressReporter registers a callback invoked after each evaluation
func (s *Searcher) WithProgressReporter(fn ProgressReporter) *Searcher {
	s.progress = fn
	return s
}

// WithStopCondition ends sequential runs early
func (s *Searcher) WithStopCondition(cond StopCondition) *Searcher {
	s.stop = cond
	return s
}

// WithLogger replaces the component logger
func (s *Searcher) WithLogger(l *slog.Logger) *Searcher {
	if l != nil {
		s.log = l
	}
	return s
}

// WithCurves keeps the sampled transmission curve on every record.
// Curves are dropped by default to keep result sets small.
func (s *Searcher) WithCurves(keep bool) *Searcher {
	s.keepCurve = keep
	return s
}

// Objective returns the scoring objective
func (s *Searcher) Objective() Objective {
	return s.objective
}

// Evaluate simulates and scores one configuration. Errors are captured on the
// record rather than returned.
func (s *Searcher) Evaluate(index int, cfg models.DeviceConfig) models.ScoreRecord {
	rec := models.ScoreRecord{
		ID:     utils.GenerateID(),
		Index:  index,
		Config: cfg,
	}
	kpis, err := s.sim.Simulate(cfg)
	if err != nil {
		rec.Status = models.RecordStatusFailed
		rec.Error = err.Error()
		return rec
	}
	if !s.keepCurve {
		kpis.Curve = nil
	}
	rec.KPIs = kpis
	rec.Status = models.RecordStatusCompleted
	rec.Degenerate = kpis.Degenerate()
	rec.Score = s.objective.Score(kpis)
	return rec
}

// Records yields one record per proposed configuration, in evaluation order.
// The sequence is finite and can be ranged over again to restart it.
func (s *Searcher) Records(strategy Strategy) iter.Seq[models.ScoreRecord] {
	return func(yield func(models.ScoreRecord) bool) {
		var history []models.ScoreRecord
		for {
			cfg, ok := strategy.Propose(history)
			if !ok {
				return
			}
			rec := s.Evaluate(len(history), cfg)
			history = append(history, rec)
			if !yield(rec) {
				return
			}
		}
	}
}

// Run evaluates every configuration proposed by strategy sequentially.
// Failed configurations are recorded and never abort the run. The best record
// is the highest score; ties go to the earliest evaluation.
func (s *Searcher) Run(ctx context.Context, strategy Strategy) (*SearchResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	total := CandidateCount(strategy)
	if total == 0 {
		return nil, fmt.Errorf("strategy %s proposes no configurations", strategy.Name())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &SearchResult{
		Strategy:  strategy.Name(),
		Objective: s.objective.Name(),
		Records:   make([]models.ScoreRecord, 0, max(total, 0)),
	}
	s.log.Info("search started", "strategy", strategy.Name(), "objective", s.objective.Name(), "candidates", total)

	for rec := range s.Records(strategy) {
		result.add(rec)
		s.report(len(result.Records), total, rec)

		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("search cancelled after %d evaluations: %w", len(result.Records), err)
		}
		if s.stop != nil {
			if stop, reason := s.stop.ShouldStop(result.Records); stop {
				result.Stopped = reason
				s.log.Info("search stopped early", "condition", s.stop.Name(), "reason", reason)
				break
			}
		}
	}

	result.Duration = time.Since(start)
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("strategy %s proposes no configurations", strategy.Name())
	}
	s.logDone(result)
	return result, nil
}

func (s *Searcher) report(done, total int, rec models.ScoreRecord) {
	if rec.Status == models.RecordStatusFailed {
		s.log.Warn("configuration failed", "index", rec.Index, "config", rec.Config.String(), "error", rec.Error)
	} else {
		s.log.Debug("configuration evaluated", "index", rec.Index, "config", rec.Config.String(), "score", rec.Score)
	}
	if s.progress != nil {
		s.progress(done, total, rec)
	}
}

func (s *Searcher) logDone(result *SearchResult) {
	attrs := []any{
		"evaluated", result.Evaluated,
		"failed", result.Failed,
		"degenerate", result.Degenerate,
		"duration", result.Duration,
	}
	if result.Best != nil {
		attrs = append(attrs, "best", result.Best.Config.String(), "score", result.Best.Score)
	}
	s.log.Info("search finished", attrs...)
}

// add appends rec and updates counters and the best record
func (r *SearchResult) add(rec models.ScoreRecord) {
	r.Records = append(r.Records, rec)
	if rec.Status == models.RecordStatusFailed {
		r.Failed++
		return
	}
	r.Evaluated++
	if rec.Degenerate {
		r.Degenerate++
	}
	if rec.Better(r.Best) {
		best := rec
		r.Best = &best
	}
}
