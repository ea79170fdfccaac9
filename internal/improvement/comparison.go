package improvement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// KPIComparison compares two evaluated configurations (b relative to a)
type KPIComparison struct {
	A                 models.DeviceConfig `json:"a"`
	B                 models.DeviceConfig `json:"b"`
	ScoreDiff         float64             `json:"score_diff"`
	Improvement       bool                `json:"improvement"` // true if b ranks above a
	T0Diff            float64             `json:"t0_diff"`
	ContrastDiff      float64             `json:"contrast_diff"`
	KneeRatio         float64             `json:"knee_ratio,omitempty"`
	EnergyDiffPJ      float64             `json:"energy_diff_pj"`
	ResponseTimeRatio float64             `json:"response_time_ratio,omitempty"`
}

// CompareRecords compares two completed records
func CompareRecords(a, b *models.ScoreRecord) (*KPIComparison, error) {
	if !a.Evaluated() {
		return nil, fmt.Errorf("first record is not evaluated")
	}
	if !b.Evaluated() {
		return nil, fmt.Errorf("second record is not evaluated")
	}
	if a.KPIs == nil || b.KPIs == nil {
		return nil, fmt.Errorf("records carry no KPIs")
	}

	cmp := &KPIComparison{
		A:            a.Config,
		B:            b.Config,
		ScoreDiff:    b.Score - a.Score,
		Improvement:  b.Score > a.Score,
		T0Diff:       b.KPIs.T0 - a.KPIs.T0,
		ContrastDiff: b.KPIs.Contrast - a.KPIs.Contrast,
		EnergyDiffPJ: b.KPIs.SwitchingEnergyPJ - a.KPIs.SwitchingEnergyPJ,
	}
	if a.KPIs.KneeDefined && b.KPIs.KneeDefined && a.KPIs.KneeIntensity > 0 {
		cmp.KneeRatio = b.KPIs.KneeIntensity / a.KPIs.KneeIntensity
	}
	if a.KPIs.ResponseTime > 0 {
		cmp.ResponseTimeRatio = b.KPIs.ResponseTime / a.KPIs.ResponseTime
	}
	return cmp, nil
}

// ScoreSummary aggregates the scores of a result set
type ScoreSummary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	BestID   string  `json:"best_id,omitempty"`
	WorstID  string  `json:"worst_id,omitempty"`
}

// Summarize computes statistics over the completed records
func Summarize(records []models.ScoreRecord) (*ScoreSummary, error) {
	scores := make([]float64, 0, len(records))
	var best, worst *models.ScoreRecord
	for i := range records {
		r := &records[i]
		if !r.Evaluated() {
			continue
		}
		scores = append(scores, r.Score)
		if r.Better(best) {
			best = r
		}
		if worst == nil || worst.Better(r) {
			worst = r
		}
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("no evaluated records")
	}

	mean := utils.Mean(scores)
	min, max := utils.MinMax(scores)
	return &ScoreSummary{
		Count:    len(scores),
		Mean:     mean,
		Variance: variance(scores, mean),
		Min:      min,
		Max:      max,
		BestID:   best.ID,
		WorstID:  worst.ID,
	}, nil
}

// ImprovementPercentage returns the relative gain of score2 over score1
func ImprovementPercentage(score1, score2 float64) float64 {
	if score1 == 0 {
		return 0
	}
	return (score2 - score1) / score1 * 100
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSqDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSqDiff += diff * diff
	}
	return sumSqDiff / float64(len(values))
}
