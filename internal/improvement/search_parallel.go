package improvement

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// RunParallel evaluates an Enumerable strategy's candidates with up to workers
// goroutines. Candidates are split into contiguous partitions; each worker
// keeps a local best and the partitions are reduced with the same ordering
// as Run, so the best record matches a sequential run. Stop conditions do
// not apply. workers <= 0 selects GOMAXPROCS.
func (s *Searcher) RunParallel(ctx context.Context, strategy Strategy, workers int) (*SearchResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	enum, ok := strategy.(Enumerable)
	if !ok {
		return nil, fmt.Errorf("strategy %s cannot be partitioned: its proposals depend on history", strategy.Name())
	}
	candidates := enum.Candidates()
	total := len(candidates)
	if total == 0 {
		return nil, fmt.Errorf("strategy %s proposes no configurations", strategy.Name())
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > total {
		workers = total
	}

	start := time.Now()
	s.log.Info("parallel search started", "strategy", strategy.Name(), "objective", s.objective.Name(),
		"candidates", total, "workers", workers)

	records := make([]models.ScoreRecord, total)
	localBest := make([]*models.ScoreRecord, workers)
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	chunk := (total + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, total)
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			var best *models.ScoreRecord
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := s.Evaluate(i, candidates[i])
				records[i] = rec
				if rec.Better(best) {
					best = &records[i]
				}

				mu.Lock()
				done++
				s.report(done, total, rec)
				mu.Unlock()
			}
			localBest[w] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel search cancelled: %w", err)
	}

	result := &SearchResult{
		Strategy:  strategy.Name(),
		Objective: s.objective.Name(),
		Records:   records,
	}
	for _, rec := range records {
		if rec.Status == models.RecordStatusFailed {
			result.Failed++
			continue
		}
		result.Evaluated++
		if rec.Degenerate {
			result.Degenerate++
		}
	}
	for _, b := range localBest {
		if b.Better(result.Best) {
			best := *b
			result.Best = &best
		}
	}
	result.Duration = time.Since(start)
	s.logDone(result)
	return result, nil
}
