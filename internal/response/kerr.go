package response

import (
	"math"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// FieldEnhancementPerQ scales the cavity field enhancement with Q
const FieldEnhancementPerQ = 0.002

// KerrParams parameterizes a Kerr phase shifter inside a two-path interferometer.
// All quantities are SI.
type KerrParams struct {
	N2                float64
	Wavelength        float64
	InteractionLength float64 // effective nonlinear length across all layers
	Q                 float64
	Gamma             float64 // mode overlap with the nonlinear material
}

// KerrInterferometer converts the intensity-dependent phase
// phi = k0 * n2 * (Gamma*I) * L * FE into transmission cos^2(phi/2).
type KerrInterferometer struct {
	phasePerIntensity float64
}

// NewKerrInterferometer builds the model from p
func NewKerrInterferometer(p KerrParams) *KerrInterferometer {
	k0 := 0.0
	if p.Wavelength > 0 {
		k0 = 2 * math.Pi / p.Wavelength
	}
	gamma := math.Max(0, p.Gamma)
	return &KerrInterferometer{
		phasePerIntensity: k0 * p.N2 * p.InteractionLength * FieldEnhancement(p.Q) * gamma,
	}
}

// FieldEnhancement models the resonant build-up inside the cavity
func FieldEnhancement(q float64) float64 {
	return 1 + FieldEnhancementPerQ*math.Max(0, q)
}

func (k *KerrInterferometer) Name() string {
	return "kerr_interferometer"
}

// Phase returns the nonlinear phase shift at intensity
func (k *KerrInterferometer) Phase(intensity float64) float64 {
	return k.phasePerIntensity * math.Max(0, intensity)
}

func (k *KerrInterferometer) Evaluate(intensity float64) float64 {
	c := math.Cos(k.Phase(intensity) / 2)
	return utils.ClampFloat64(c*c, 0, 1)
}

// KneeIntensity is the intensity that produces a pi/2 phase shift
func (k *KerrInterferometer) KneeIntensity() (float64, bool) {
	if k.phasePerIntensity <= 0 || math.IsInf(k.phasePerIntensity, 0) || math.IsNaN(k.phasePerIntensity) {
		return 0, false
	}
	return (math.Pi / 2) / k.phasePerIntensity, true
}

// HalfPeriodIntensity is the intensity that swings transmission from peak to trough
func (k *KerrInterferometer) HalfPeriodIntensity() (float64, bool) {
	knee, ok := k.KneeIntensity()
	return 2 * knee, ok
}
