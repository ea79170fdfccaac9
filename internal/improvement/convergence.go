package improvement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// StopCondition ends a sequential search before the strategy is exhausted
type StopCondition interface {
	// ShouldStop inspects the records evaluated so far
	ShouldStop(records []models.ScoreRecord) (bool, string)
	// Name returns the name of the condition
	Name() string
}

// NoImprovementCondition stops once Patience consecutive evaluations have
// failed to produce a new best record
type NoImprovementCondition struct {
	Patience int
}

func (c *NoImprovementCondition) Name() string {
	return "no_improvement"
}

func (c *NoImprovementCondition) ShouldStop(records []models.ScoreRecord) (bool, string) {
	if c.Patience <= 0 || len(records) <= c.Patience {
		return false, ""
	}
	bestIdx := -1
	for i := range records {
		if bestIdx < 0 || records[i].Better(&records[bestIdx]) {
			bestIdx = i
		}
	}
	if bestIdx < 0 || !records[bestIdx].Evaluated() {
		return false, ""
	}
	since := len(records) - 1 - bestIdx
	if since >= c.Patience {
		return true, fmt.Sprintf("no improvement for %d evaluations (best at index %d)", since, records[bestIdx].Index)
	}
	return false, ""
}

// TargetScoreCondition stops as soon as any record reaches Target
type TargetScoreCondition struct {
	Target float64
}

func (c *TargetScoreCondition) Name() string {
	return "target_score"
}

func (c *TargetScoreCondition) ShouldStop(records []models.ScoreRecord) (bool, string) {
	if len(records) == 0 {
		return false, ""
	}
	last := records[len(records)-1]
	if last.Evaluated() && last.Score >= c.Target {
		return true, fmt.Sprintf("score %.4e reached target %.4e", last.Score, c.Target)
	}
	return false, ""
}
