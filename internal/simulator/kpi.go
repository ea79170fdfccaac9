package simulator

import (
	"math"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// Contrast is the peak-to-trough transmission swing over the sampled curve.
// The same definition applies to every response model.
func Contrast(transmission []float64) float64 {
	min, max := utils.MinMax(transmission)
	return utils.ClampFloat64(max-min, 0, 1)
}

// EdgeSlopeTolerance bounds the share of the total swing a single step at
// either end of the sweep may cover. A steeper edge means the transition
// extends beyond the sampled range.
const EdgeSlopeTolerance = 0.01

// KneeByFraction returns the first sampled intensity at which the curve has
// covered frac of the way from its first to its last value. ok is false when
// the curve is flat, never crosses the target, or is still changing steeply
// at either end of the sweep (the transition is not contained in the range).
func KneeByFraction(intensity, y []float64, frac float64) (float64, bool) {
	n := len(y)
	if n < 3 || len(intensity) != n {
		return 0, false
	}
	start, end := y[0], y[n-1]
	span := end - start
	if span == 0 || math.IsNaN(span) {
		return 0, false
	}
	if math.Abs(y[1]-y[0]) > EdgeSlopeTolerance*math.Abs(span) ||
		math.Abs(y[n-1]-y[n-2]) > EdgeSlopeTolerance*math.Abs(span) {
		return 0, false
	}
	target := start + frac*span
	rising := span > 0
	for i, v := range y {
		if (rising && v >= target) || (!rising && v <= target) {
			return intensity[i], true
		}
	}
	return 0, false
}

// SwitchingEnergyPJ is the energy needed to hold the knee intensity over the
// device area for one response time, in picojoules.
func SwitchingEnergyPJ(knee, area, responseTime float64) float64 {
	return math.Max(0, 1e12*knee*area*responseTime)
}
