package models

import (
	"fmt"
	"math"
)

// ResponseClass selects which nonlinear response model describes a material
type ResponseClass string

const (
	ResponseSaturableAbsorber ResponseClass = "saturable_absorber"
	ResponseKerr              ResponseClass = "kerr"
)

// Sourcing describes how a material can be obtained
type Sourcing string

const (
	SourcingCommercial   Sourcing = "commercial"
	SourcingLab          Sourcing = "lab"
	SourcingExperimental Sourcing = "experimental"
)

// MaterialSpec holds the optical constants of a candidate material.
// Optional fields are nil when the material does not define them; model
// defaults apply in that case.
type MaterialSpec struct {
	Name                string        `json:"name" yaml:"name"`
	Model               ResponseClass `json:"model" yaml:"model"`
	Sourcing            Sourcing      `json:"sourcing" yaml:"sourcing"`
	N                   float64       `json:"n" yaml:"n"`
	K                   float64       `json:"k" yaml:"k"`
	N2                  float64       `json:"n2_m2_per_w" yaml:"n2_m2_per_w"`
	LayerThicknessNm    float64       `json:"layer_thickness_nm" yaml:"layer_thickness_nm"`
	SaturationIntensity *float64      `json:"isat_w_m2,omitempty" yaml:"isat_w_m2,omitempty"`
	RecoveryTime        *float64      `json:"tau_s,omitempty" yaml:"tau_s,omitempty"`
	SaturableFraction   *float64      `json:"saturable_fraction,omitempty" yaml:"saturable_fraction,omitempty"`
}

// DefaultInteractionLengthUm is the waveguide interaction length used when a
// configuration leaves it unset.
const DefaultInteractionLengthUm = 50.0

// DeviceConfig is one candidate point of the search space
type DeviceConfig struct {
	Material            string  `json:"material" yaml:"material"`
	WavelengthNm        float64 `json:"wavelength_nm" yaml:"wavelength_nm"`
	Layers              int     `json:"layers" yaml:"layers"`
	Q                   float64 `json:"q" yaml:"q"`
	Gamma               float64 `json:"gamma" yaml:"gamma"`
	InteractionLengthUm float64 `json:"interaction_length_um,omitempty" yaml:"interaction_length_um,omitempty"`
}

// EffectiveInteractionLengthUm returns the interaction length, falling back to
// DefaultInteractionLengthUm when unset.
func (c DeviceConfig) EffectiveInteractionLengthUm() float64 {
	if c.InteractionLengthUm == 0 {
		return DefaultInteractionLengthUm
	}
	return c.InteractionLengthUm
}

// Validate checks that every geometry parameter is physically meaningful.
func (c DeviceConfig) Validate() error {
	if c.Material == "" {
		return &InvalidConfigurationError{Field: "material", Value: c.Material, Reason: "cannot be empty"}
	}
	if c.Layers <= 0 {
		return &InvalidConfigurationError{Field: "layers", Value: c.Layers, Reason: "must be positive"}
	}
	if !finite(c.WavelengthNm) || c.WavelengthNm <= 0 {
		return &InvalidConfigurationError{Field: "wavelength_nm", Value: c.WavelengthNm, Reason: "must be positive"}
	}
	if !finite(c.Q) || c.Q <= 0 {
		return &InvalidConfigurationError{Field: "q", Value: c.Q, Reason: "must be positive"}
	}
	if !finite(c.Gamma) || c.Gamma <= 0 || c.Gamma > 1 {
		return &InvalidConfigurationError{Field: "gamma", Value: c.Gamma, Reason: "must be in (0, 1]"}
	}
	if l := c.InteractionLengthUm; !finite(l) || l < 0 {
		return &InvalidConfigurationError{Field: "interaction_length_um", Value: l, Reason: "cannot be negative"}
	}
	return nil
}

// String renders the configuration the way result listings show it
func (c DeviceConfig) String() string {
	return fmt.Sprintf("%s, Layers: %d, Lambda: %gnm, Q: %.1f, Gamma: %.2f",
		c.Material, c.Layers, c.WavelengthNm, c.Q, c.Gamma)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Curve is a sampled transmission curve
type Curve struct {
	Intensity    []float64 `json:"intensity_w_m2"`
	Transmission []float64 `json:"transmission"`
}

// PerformanceKPIs are derived from a simulated curve and never mutated afterwards.
type PerformanceKPIs struct {
	T0                float64 `json:"t0"`
	Contrast          float64 `json:"contrast"`
	KneeIntensity     float64 `json:"knee_intensity_w_m2"`
	KneeDefined       bool    `json:"knee_defined"`
	SwitchingEnergyPJ float64 `json:"switching_energy_pj"`
	ResponseTime      float64 `json:"response_time_s"`
	Curve             *Curve  `json:"curve,omitempty"`
}

// Degenerate reports whether the knee (and with it the switching energy) could not be determined
func (k *PerformanceKPIs) Degenerate() bool {
	return k == nil || !k.KneeDefined
}

// RecordStatus is the outcome of evaluating one configuration
type RecordStatus string

const (
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
)

// ScoreRecord is the result of evaluating one configuration
type ScoreRecord struct {
	ID         string           `json:"id"`
	Index      int              `json:"index"`
	Config     DeviceConfig     `json:"config"`
	KPIs       *PerformanceKPIs `json:"kpis,omitempty"`
	Score      float64          `json:"score"`
	Status     RecordStatus     `json:"status"`
	Degenerate bool             `json:"degenerate,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Evaluated reports whether the record carries a score
func (r *ScoreRecord) Evaluated() bool {
	return r != nil && r.Status == RecordStatusCompleted
}

// Better reports whether r ranks strictly above other. Higher scores win;
// ties go to the record evaluated first.
func (r *ScoreRecord) Better(other *ScoreRecord) bool {
	if !r.Evaluated() {
		return false
	}
	if !other.Evaluated() {
		return true
	}
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	return r.Index < other.Index
}
