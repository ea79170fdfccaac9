// Package simulator maps a device configuration to performance KPIs by
// sweeping the material's response model over input intensity.
package simulator

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/response"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// MinSweepPoints is the smallest sweep that still resolves the knee region
const MinSweepPoints = 50

// DefaultDeviceArea is a 10 um x 10 um device footprint (m^2)
const DefaultDeviceArea = 10e-6 * 10e-6

// Sweep is the logarithmic intensity grid the response is sampled on
type Sweep struct {
	MinIntensity float64 // W/m^2
	MaxIntensity float64 // W/m^2
	Points       int
}

// SweepMarginDecades is how far the default sweep extends on each side of a
// saturable absorber's I_sat
const SweepMarginDecades = 2

// DefaultSweep covers 1e2..1e8 W/m^2 with 300 points
func DefaultSweep() Sweep {
	return Sweep{MinIntensity: 1e2, MaxIntensity: 1e8, Points: 300}
}

// Covering widens the sweep so it spans center by margin decades on both
// sides, keeping the sampling density per decade. A sweep that already
// covers that window is returned unchanged.
func (s Sweep) Covering(center, margin float64) Sweep {
	if center <= 0 || math.IsInf(center, 0) || math.IsNaN(center) {
		return s
	}
	span := math.Pow(10, margin)
	lo := math.Min(s.MinIntensity, center/span)
	hi := math.Max(s.MaxIntensity, center*span)
	if lo == s.MinIntensity && hi == s.MaxIntensity {
		return s
	}
	decades := math.Log10(s.MaxIntensity / s.MinIntensity)
	widened := math.Log10(hi / lo)
	points := int(math.Ceil(float64(s.Points-1)*widened/decades)) + 1
	return Sweep{MinIntensity: lo, MaxIntensity: hi, Points: max(points, s.Points)}
}

// Validate checks the sweep bounds
func (s Sweep) Validate() error {
	if s.MinIntensity <= 0 {
		return fmt.Errorf("sweep min intensity must be positive, got %g", s.MinIntensity)
	}
	if s.MaxIntensity <= s.MinIntensity {
		return fmt.Errorf("sweep max intensity %g must exceed min intensity %g", s.MaxIntensity, s.MinIntensity)
	}
	if s.Points < MinSweepPoints {
		return fmt.Errorf("sweep needs at least %d points, got %d", MinSweepPoints, s.Points)
	}
	return nil
}

// Intensities returns the sampled grid
func (s Sweep) Intensities() []float64 {
	return utils.Logspace(math.Log10(s.MinIntensity), math.Log10(s.MaxIntensity), s.Points)
}

// Simulator evaluates device configurations against a material catalog.
// It holds no mutable state; Simulate is safe for concurrent use.
type Simulator struct {
	catalog     *material.Catalog
	sweep       Sweep
	intensities []float64
	deviceArea  float64
	// anchored widens the sweep around each saturable absorber's I_sat;
	// cleared once a sweep is set explicitly
	anchored bool
}

// New creates a simulator with the default sweep and device area. The
// default sweep is widened per material so it always spans
// SweepMarginDecades around the material's saturation intensity.
func New(catalog *material.Catalog) *Simulator {
	s := &Simulator{
		catalog:    catalog,
		deviceArea: DefaultDeviceArea,
		anchored:   true,
	}
	s.setSweep(DefaultSweep())
	return s
}

// WithSweep replaces the intensity sweep. An explicit sweep is used as is
// for every material.
func (s *Simulator) WithSweep(sweep Sweep) (*Simulator, error) {
	if err := sweep.Validate(); err != nil {
		return nil, err
	}
	s.setSweep(sweep)
	s.anchored = false
	return s, nil
}

// WithDeviceArea sets the footprint used for switching energy (m^2)
func (s *Simulator) WithDeviceArea(area float64) (*Simulator, error) {
	if area <= 0 || math.IsInf(area, 0) || math.IsNaN(area) {
		return nil, fmt.Errorf("device area must be positive, got %g", area)
	}
	s.deviceArea = area
	return s, nil
}

func (s *Simulator) setSweep(sweep Sweep) {
	s.sweep = sweep
	s.intensities = sweep.Intensities()
}

// Catalog returns the catalog materials are resolved against
func (s *Simulator) Catalog() *material.Catalog {
	return s.catalog
}

// Sweep returns the configured sweep
func (s *Simulator) Sweep() Sweep {
	return s.sweep
}

// SweepFor returns the sweep a material is sampled on
func (s *Simulator) SweepFor(spec models.MaterialSpec) Sweep {
	if !s.anchored || spec.Model != models.ResponseSaturableAbsorber {
		return s.sweep
	}
	return s.sweep.Covering(material.SaturationIntensity(spec), SweepMarginDecades)
}

func (s *Simulator) intensitiesFor(spec models.MaterialSpec) []float64 {
	sweep := s.SweepFor(spec)
	if sweep == s.sweep {
		out := make([]float64, len(s.intensities))
		copy(out, s.intensities)
		return out
	}
	return sweep.Intensities()
}

// Simulate computes the KPIs of cfg. It fails with an
// *models.InvalidConfigurationError before any curve computation when cfg is
// non-physical, and with *models.MaterialNotFoundError when the material is
// not in the catalog. A knee that cannot be located is reported through
// KneeDefined rather than as an error.
func (s *Simulator) Simulate(cfg models.DeviceConfig) (*models.PerformanceKPIs, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := s.catalog.Lookup(cfg.Material)
	if err != nil {
		return nil, err
	}
	model, err := response.ForMaterial(spec, cfg)
	if err != nil {
		return nil, err
	}

	intensities := s.intensitiesFor(spec)
	curve := &models.Curve{
		Intensity:    intensities,
		Transmission: response.Sample(model, intensities),
	}

	knee, kneeOK := model.KneeIntensity()
	if !kneeOK {
		knee, kneeOK = KneeByFraction(curve.Intensity, curve.Transmission, 0.5)
	}
	if kneeOK && (knee <= 0 || math.IsInf(knee, 0) || math.IsNaN(knee)) {
		kneeOK = false
	}

	tau := material.RecoveryTime(spec)
	kpis := &models.PerformanceKPIs{
		T0:           utils.ClampFloat64(curve.Transmission[0], 0, 1),
		Contrast:     Contrast(curve.Transmission),
		KneeDefined:  kneeOK,
		ResponseTime: math.Max(0, tau),
		Curve:        curve,
	}
	if kneeOK {
		kpis.KneeIntensity = knee
		kpis.SwitchingEnergyPJ = SwitchingEnergyPJ(knee, s.deviceArea, kpis.ResponseTime)
	}
	return kpis, nil
}
