// Package response implements the intensity-dependent transmission models
// of the candidate materials.
package response

import (
	"fmt"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// Model maps an input intensity to a transmission in [0, 1]
type Model interface {
	// Evaluate returns the transmission at intensity (W/m^2)
	Evaluate(intensity float64) float64
	// KneeIntensity returns the closed-form knee when the model has one.
	// ok is false when the knee must be located numerically or does not exist.
	KneeIntensity() (knee float64, ok bool)
	// Name returns the name of the model
	Name() string
}

// ForMaterial builds the response model matching the material's class,
// parameterized by the device configuration.
func ForMaterial(spec models.MaterialSpec, cfg models.DeviceConfig) (Model, error) {
	lambda := cfg.WavelengthNm * 1e-9
	switch spec.Model {
	case models.ResponseSaturableAbsorber:
		return NewSaturableAbsorber(SaturableAbsorberParams{
			ExtinctionK:         spec.K,
			Wavelength:          lambda,
			Thickness:           spec.LayerThicknessNm * 1e-9 * float64(cfg.Layers),
			SaturationIntensity: material.SaturationIntensity(spec),
			SaturableFraction:   material.SaturableFraction(spec),
		}), nil
	case models.ResponseKerr:
		return NewKerrInterferometer(KerrParams{
			N2:                spec.N2,
			Wavelength:        lambda,
			InteractionLength: cfg.EffectiveInteractionLengthUm() * 1e-6 * float64(cfg.Layers),
			Q:                 cfg.Q,
			Gamma:             cfg.Gamma,
		}), nil
	default:
		return nil, fmt.Errorf("no response model for material %s (model %q)", spec.Name, spec.Model)
	}
}

// Sample evaluates m at each intensity
func Sample(m Model, intensities []float64) []float64 {
	out := make([]float64, len(intensities))
	for i, in := range intensities {
		out[i] = m.Evaluate(in)
	}
	return out
}
