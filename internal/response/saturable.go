package response

import (
	"math"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// SaturableAbsorberParams parameterizes a saturable absorber stack.
// All quantities are SI.
type SaturableAbsorberParams struct {
	ExtinctionK         float64
	Wavelength          float64
	Thickness           float64 // total thickness of all layers
	SaturationIntensity float64
	SaturableFraction   float64
}

// SaturableAbsorber bleaches the saturable share of its small-signal
// absorption as intensity rises:
//
//	T(I) = 1 - (alphaSat / (1 + I/Isat) + alphaNS)
//
// Small-signal absorption follows Beer-Lambert over the stack thickness, so
// adding layers compounds exponentially rather than linearly.
type SaturableAbsorber struct {
	alphaSat float64
	alphaNS  float64
	isat     float64
}

// NewSaturableAbsorber builds the model from p
func NewSaturableAbsorber(p SaturableAbsorberParams) *SaturableAbsorber {
	a0 := SmallSignalAbsorption(p.ExtinctionK, p.Wavelength, p.Thickness)
	f := utils.ClampFloat64(p.SaturableFraction, 0, 1)
	return &SaturableAbsorber{
		alphaSat: f * a0,
		alphaNS:  (1 - f) * a0,
		isat:     p.SaturationIntensity,
	}
}

// SmallSignalAbsorption returns 1 - exp(-alpha*t) with alpha = 4*pi*k/lambda
func SmallSignalAbsorption(k, wavelength, thickness float64) float64 {
	if wavelength <= 0 || thickness <= 0 || k <= 0 {
		return 0
	}
	alpha := 4 * math.Pi * k / wavelength
	return 1 - math.Exp(-alpha*thickness)
}

func (s *SaturableAbsorber) Name() string {
	return "saturable_absorber"
}

func (s *SaturableAbsorber) Evaluate(intensity float64) float64 {
	if intensity < 0 {
		intensity = 0
	}
	t := 1 - (s.alphaSat/(1+intensity/s.isat) + s.alphaNS)
	return utils.ClampFloat64(t, 0, 1)
}

// KneeIntensity reports no closed form: the knee is taken where the swept
// curve crosses the midpoint of its own range, which sits slightly off I_sat
// for a finite sweep. See SaturationKnee for the asymptotic value.
func (s *SaturableAbsorber) KneeIntensity() (float64, bool) {
	return 0, false
}

// SaturationKnee is I_sat, where the saturable term reaches half of its
// asymptotic swing. ok is false when nothing is saturable.
func (s *SaturableAbsorber) SaturationKnee() (float64, bool) {
	if s.alphaSat <= 0 {
		return 0, false
	}
	return s.isat, true
}

// UnsaturatedTransmission is the transmission in the I -> 0 limit
func (s *SaturableAbsorber) UnsaturatedTransmission() float64 {
	return 1 - s.alphaSat - s.alphaNS
}

// ModulationDepth is the transmission gained when fully bleached
func (s *SaturableAbsorber) ModulationDepth() float64 {
	return s.alphaSat
}
