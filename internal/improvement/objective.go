package improvement

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// Objective reduces a configuration's KPIs to a single scalar.
// Higher scores are better for every objective in this package.
type Objective interface {
	// Score computes the objective value from KPIs.
	// Degenerate KPIs (undefined knee) score 0.
	Score(kpis *models.PerformanceKPIs) float64

	// Name returns the name of the objective.
	Name() string
}

// ObjectiveType represents the type of objective
type ObjectiveType string

const (
	// ObjectiveFigureOfMerit weighs contrast and insertion transmission against
	// switching energy and response time
	ObjectiveFigureOfMerit ObjectiveType = "figure_of_merit"
	// ObjectiveContrastPerEnergy is contrast divided by switching energy
	ObjectiveContrastPerEnergy ObjectiveType = "contrast_per_energy"
)

const (
	// EnergyFloorPJ bounds the switching energy away from zero
	EnergyFloorPJ = 1e-9
	// ResponseTimeFloor bounds the response time away from zero (s)
	ResponseTimeFloor = 1e-15
	// ResponseTimeUnit normalizes response time before weighting (s)
	ResponseTimeUnit = 1e-9
)

// Weights are the exponents of the figure of merit
type Weights struct {
	Contrast     float64 `json:"contrast" yaml:"contrast"`
	Transmission float64 `json:"transmission" yaml:"transmission"`
	Energy       float64 `json:"energy" yaml:"energy"`
	ResponseTime float64 `json:"response_time" yaml:"response_time"`
}

// DefaultWeights returns C*T0/E with response time entering only through E
func DefaultWeights() Weights {
	return Weights{Contrast: 1, Transmission: 1, Energy: 1, ResponseTime: 0}
}

// Validate rejects negative or non-finite exponents
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"contrast", w.Contrast},
		{"transmission", w.Transmission},
		{"energy", w.Energy},
		{"response_time", w.ResponseTime},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("weight %s must be a non-negative finite number, got %g", f.name, f.value)
		}
	}
	return nil
}

// NewObjective creates an objective from a type string. An empty type selects
// the figure of merit.
func NewObjective(objType string, weights Weights) (Objective, error) {
	switch ObjectiveType(objType) {
	case ObjectiveFigureOfMerit, "":
		if err := weights.Validate(); err != nil {
			return nil, err
		}
		return &FigureOfMeritObjective{Weights: weights}, nil
	case ObjectiveContrastPerEnergy:
		return &ContrastPerEnergyObjective{}, nil
	default:
		return nil, &UnknownObjectiveError{ObjectiveType: objType}
	}
}

// FigureOfMeritObjective scores
//
//	C^wc * T0^wt / (max(E, floor)^we * (max(tau, floor)/1ns)^wr)
//
// The score is non-decreasing in contrast and T0 and non-increasing in
// switching energy and response time. Scores that overflow saturate at
// math.MaxFloat64.
type FigureOfMeritObjective struct {
	Weights Weights
}

func (o *FigureOfMeritObjective) Name() string {
	return string(ObjectiveFigureOfMerit)
}

func (o *FigureOfMeritObjective) Score(kpis *models.PerformanceKPIs) float64 {
	if kpis.Degenerate() {
		return 0
	}
	w := o.Weights
	energy := math.Max(kpis.SwitchingEnergyPJ, EnergyFloorPJ)
	tau := math.Max(kpis.ResponseTime, ResponseTimeFloor) / ResponseTimeUnit

	num := math.Pow(math.Max(kpis.Contrast, 0), w.Contrast) * math.Pow(math.Max(kpis.T0, 0), w.Transmission)
	den := math.Pow(energy, w.Energy) * math.Pow(tau, w.ResponseTime)
	score := num / den
	if math.IsNaN(score) {
		// Inf/Inf or 0/0 after an intermediate overflow or underflow
		score = math.Exp(logTerm(kpis.Contrast, w.Contrast) + logTerm(kpis.T0, w.Transmission) -
			logTerm(energy, w.Energy) - logTerm(tau, w.ResponseTime))
		if math.IsNaN(score) {
			return 0
		}
	}
	if math.IsInf(score, 1) {
		return math.MaxFloat64
	}
	return score
}

// logTerm is ln(max(x, 0)^w) with a zero exponent contributing nothing
func logTerm(x, w float64) float64 {
	if w == 0 {
		return 0
	}
	return w * math.Log(math.Max(x, 0))
}

// ContrastPerEnergyObjective scores contrast per picojoule of switching energy
type ContrastPerEnergyObjective struct{}

func (o *ContrastPerEnergyObjective) Name() string {
	return string(ObjectiveContrastPerEnergy)
}

func (o *ContrastPerEnergyObjective) Score(kpis *models.PerformanceKPIs) float64 {
	if kpis.Degenerate() {
		return 0
	}
	return math.Max(kpis.Contrast, 0) / math.Max(kpis.SwitchingEnergyPJ, EnergyFloorPJ)
}

// UnknownObjectiveError indicates an unknown objective type
type UnknownObjectiveError struct {
	ObjectiveType string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective type: " + e.ObjectiveType
}
