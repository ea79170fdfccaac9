package simulator

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

func referenceConfig() models.DeviceConfig {
	return models.DeviceConfig{Material: "WS2", WavelengthNm: 1300, Layers: 5, Q: 391.7, Gamma: 0.50}
}

func within(got, want, relTol float64) bool {
	return math.Abs(got-want) <= relTol*math.Abs(want)
}

func TestSimulateReferenceWS2(t *testing.T) {
	sim := New(material.DefaultCatalog())
	kpis, err := sim.Simulate(referenceConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"T0", kpis.T0, 0.99686},
		{"contrast", kpis.Contrast, 1.8705e-3},
		{"knee intensity", kpis.KneeIntensity, 6.2036e5},
		{"switching energy", kpis.SwitchingEnergyPJ, 0.18611},
		{"response time", kpis.ResponseTime, 3e-9},
	}
	for _, c := range checks {
		if !within(c.got, c.want, 0.01) {
			t.Errorf("%s = %g, expected %g (+/-1%%)", c.name, c.got, c.want)
		}
	}
	if !kpis.KneeDefined {
		t.Fatalf("expected a defined knee")
	}
	if len(kpis.Curve.Intensity) != 300 || len(kpis.Curve.Transmission) != 300 {
		t.Fatalf("expected a 300-point curve, got %d", len(kpis.Curve.Intensity))
	}
}

func TestSimulateKPIRanges(t *testing.T) {
	sim := New(material.DefaultCatalog())
	for _, mat := range []string{"MOS2", "WS2", "GRAPHENE"} {
		for _, layers := range []int{1, 3, 5, 20} {
			for _, lambda := range []float64{800, 1300, 1600} {
				for _, q := range []float64{10, 391.7, 1000} {
					for _, gamma := range []float64{0.05, 0.5, 1} {
						cfg := models.DeviceConfig{Material: mat, WavelengthNm: lambda, Layers: layers, Q: q, Gamma: gamma}
						kpis, err := sim.Simulate(cfg)
						if err != nil {
							t.Fatalf("%v: unexpected error: %v", cfg, err)
						}
						if kpis.T0 < 0 || kpis.T0 > 1 {
							t.Fatalf("%v: T0 %g outside [0,1]", cfg, kpis.T0)
						}
						if kpis.Contrast < 0 || kpis.Contrast > 1 {
							t.Fatalf("%v: contrast %g outside [0,1]", cfg, kpis.Contrast)
						}
						if kpis.KneeIntensity < 0 || kpis.SwitchingEnergyPJ < 0 || kpis.ResponseTime < 0 {
							t.Fatalf("%v: negative physical quantity %+v", cfg, kpis)
						}
						for _, v := range []float64{kpis.T0, kpis.Contrast, kpis.KneeIntensity, kpis.SwitchingEnergyPJ} {
							if math.IsNaN(v) || math.IsInf(v, 0) {
								t.Fatalf("%v: non-finite KPI %+v", cfg, kpis)
							}
						}
					}
				}
			}
		}
	}
}

func TestSimulateLayerMonotonicity(t *testing.T) {
	sim := New(material.DefaultCatalog())
	for _, mat := range []string{"MOS2", "WS2"} {
		prev := 2.0
		for _, layers := range []int{1, 2, 3, 5, 8} {
			cfg := referenceConfig()
			cfg.Material = mat
			cfg.Layers = layers
			kpis, err := sim.Simulate(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !(kpis.T0 < prev) {
				t.Fatalf("%s: T0 did not decrease at %d layers (%g >= %g)", mat, layers, kpis.T0, prev)
			}
			prev = kpis.T0
		}
	}
}

func TestSimulateIdempotent(t *testing.T) {
	sim := New(material.DefaultCatalog())
	for _, cfg := range []models.DeviceConfig{
		referenceConfig(),
		{Material: "GRAPHENE", WavelengthNm: 1550, Layers: 2, Q: 200, Gamma: 0.2},
	} {
		a, err := sim.Simulate(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := sim.Simulate(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("expected bit-identical KPIs for %v", cfg)
		}
	}
}

func TestSimulateInvalidConfiguration(t *testing.T) {
	sim := New(material.DefaultCatalog())
	tests := []struct {
		name   string
		mutate func(*models.DeviceConfig)
	}{
		{"zero layers", func(c *models.DeviceConfig) { c.Layers = 0 }},
		{"negative layers", func(c *models.DeviceConfig) { c.Layers = -1 }},
		{"zero gamma", func(c *models.DeviceConfig) { c.Gamma = 0 }},
		{"gamma above one", func(c *models.DeviceConfig) { c.Gamma = 1.5 }},
		{"zero Q", func(c *models.DeviceConfig) { c.Q = 0 }},
		{"negative wavelength", func(c *models.DeviceConfig) { c.WavelengthNm = -1300 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := referenceConfig()
			tt.mutate(&cfg)
			kpis, err := sim.Simulate(cfg)
			if !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			if kpis != nil {
				t.Fatalf("expected no KPIs on error")
			}
		})
	}
}

func TestSimulateInvalidConfigurationBeforeLookup(t *testing.T) {
	sim := New(material.DefaultCatalog())
	cfg := referenceConfig()
	cfg.Material = "UNOBTAINIUM"
	cfg.Layers = 0
	if _, err := sim.Simulate(cfg); !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Fatalf("expected configuration to be validated first, got %v", err)
	}
}

func TestSimulateMaterialNotFound(t *testing.T) {
	sim := New(material.DefaultCatalog())
	cfg := referenceConfig()
	cfg.Material = "UNOBTAINIUM"
	_, err := sim.Simulate(cfg)
	if !errors.Is(err, models.ErrMaterialNotFound) {
		t.Fatalf("expected ErrMaterialNotFound, got %v", err)
	}
}

func TestSimulateGrapheneUsesClosedFormKnee(t *testing.T) {
	sim := New(material.DefaultCatalog())
	cfg := models.DeviceConfig{Material: "GRAPHENE", WavelengthNm: 1300, Layers: 1, Q: 200, Gamma: 0.2}
	kpis, err := sim.Simulate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k0 := 2 * math.Pi / 1300e-9
	want := (math.Pi / 2) / (k0 * 1e-11 * 50e-6 * (1 + 0.002*200) * 0.2)
	if !within(kpis.KneeIntensity, want, 1e-9) {
		t.Fatalf("expected knee %g, got %g", want, kpis.KneeIntensity)
	}
	if kpis.ResponseTime != 1e-12 {
		t.Fatalf("expected graphene response time 1 ps, got %g", kpis.ResponseTime)
	}
	wantE := 1e12 * want * DefaultDeviceArea * 1e-12
	if !within(kpis.SwitchingEnergyPJ, wantE, 1e-9) {
		t.Fatalf("expected switching energy %g, got %g", wantE, kpis.SwitchingEnergyPJ)
	}
}

func TestSimulateKneeNotFound(t *testing.T) {
	// Saturation intensity far above an explicit sweep: the curve is still
	// climbing at the top of the range.
	isat := 1e12
	tau := 1e-9
	frac := 0.6
	cat, err := material.NewCatalog([]models.MaterialSpec{{
		Name:                "SLOW",
		Model:               models.ResponseSaturableAbsorber,
		Sourcing:            models.SourcingExperimental,
		K:                   0.2,
		LayerThicknessNm:    1,
		SaturationIntensity: &isat,
		RecoveryTime:        &tau,
		SaturableFraction:   &frac,
	}, {
		Name:             "CLEAR",
		Model:            models.ResponseSaturableAbsorber,
		Sourcing:         models.SourcingExperimental,
		K:                0,
		LayerThicknessNm: 1,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim, err := New(cat).WithSweep(DefaultSweep())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"SLOW", "CLEAR"} {
		cfg := referenceConfig()
		cfg.Material = name
		kpis, err := sim.Simulate(cfg)
		if err != nil {
			t.Fatalf("%s: degeneracy must not be an error, got %v", name, err)
		}
		if kpis.KneeDefined {
			t.Fatalf("%s: expected undefined knee, got %g", name, kpis.KneeIntensity)
		}
		if kpis.KneeIntensity != 0 || kpis.SwitchingEnergyPJ != 0 {
			t.Fatalf("%s: expected zeroed knee and energy, got %+v", name, kpis)
		}
		if !kpis.Degenerate() {
			t.Fatalf("%s: expected degenerate KPIs", name)
		}
	}
}

func TestSweepConfiguration(t *testing.T) {
	sim := New(material.DefaultCatalog())
	if _, err := sim.WithSweep(Sweep{MinIntensity: 1e2, MaxIntensity: 1e8, Points: 10}); err == nil {
		t.Fatalf("expected error for a sweep with too few points")
	}
	if _, err := sim.WithSweep(Sweep{MinIntensity: 0, MaxIntensity: 1e8, Points: 100}); err == nil {
		t.Fatalf("expected error for non-positive min intensity")
	}
	if _, err := sim.WithSweep(Sweep{MinIntensity: 1e8, MaxIntensity: 1e2, Points: 100}); err == nil {
		t.Fatalf("expected error for inverted sweep")
	}
	if _, err := sim.WithDeviceArea(0); err == nil {
		t.Fatalf("expected error for zero device area")
	}

	sim, err := sim.WithSweep(Sweep{MinIntensity: 1e1, MaxIntensity: 1e9, Points: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kpis, err := sim.Simulate(referenceConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kpis.Curve.Intensity) != 100 {
		t.Fatalf("expected 100-point curve, got %d", len(kpis.Curve.Intensity))
	}
	if !within(kpis.Curve.Intensity[0], 1e1, 1e-9) || !within(kpis.Curve.Intensity[99], 1e9, 1e-9) {
		t.Fatalf("unexpected sweep bounds %g..%g", kpis.Curve.Intensity[0], kpis.Curve.Intensity[99])
	}
}

func TestDeviceAreaScalesEnergy(t *testing.T) {
	base := New(material.DefaultCatalog())
	a, _ := base.Simulate(referenceConfig())

	bigger, err := New(material.DefaultCatalog()).WithDeviceArea(4 * DefaultDeviceArea)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := bigger.Simulate(referenceConfig())
	if !within(b.SwitchingEnergyPJ, 4*a.SwitchingEnergyPJ, 1e-12) {
		t.Fatalf("expected 4x energy, got %g vs %g", b.SwitchingEnergyPJ, a.SwitchingEnergyPJ)
	}
}

func TestSimulateCurveIsolation(t *testing.T) {
	sim := New(material.DefaultCatalog())
	a, _ := sim.Simulate(referenceConfig())
	a.Curve.Intensity[0] = -1
	b, _ := sim.Simulate(referenceConfig())
	if b.Curve.Intensity[0] <= 0 {
		t.Fatalf("mutating a returned curve leaked into the simulator")
	}
}

func TestDefaultSweepAnchorsOnSaturationIntensity(t *testing.T) {
	def := DefaultSweep()
	tests := []struct {
		name     string
		isat     float64
		wantMin  float64
		wantMax  float64
		widened  bool
		explicit bool
	}{
		{"inside default range", 6e5, def.MinIntensity, def.MaxIntensity, false, false},
		{"near the top edge", 5e7, def.MinIntensity, 5e9, true, false},
		{"near the bottom edge", 1e2, 1, def.MaxIntensity, true, false},
		{"far above the range", 1e12, def.MinIntensity, 1e14, true, false},
		{"explicit sweep is fixed", 5e7, def.MinIntensity, def.MaxIntensity, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isat, tau, frac := tt.isat, 1e-9, 0.6
			cat, err := material.NewCatalog([]models.MaterialSpec{{
				Name:                "CUSTOM",
				Model:               models.ResponseSaturableAbsorber,
				Sourcing:            models.SourcingExperimental,
				K:                   0.2,
				LayerThicknessNm:    1,
				SaturationIntensity: &isat,
				RecoveryTime:        &tau,
				SaturableFraction:   &frac,
			}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sim := New(cat)
			if tt.explicit {
				if sim, err = sim.WithSweep(def); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			cfg := referenceConfig()
			cfg.Material = "CUSTOM"
			kpis, err := sim.Simulate(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			in := kpis.Curve.Intensity
			if !within(in[0], tt.wantMin, 1e-9) || !within(in[len(in)-1], tt.wantMax, 1e-9) {
				t.Fatalf("expected sweep %g..%g, got %g..%g", tt.wantMin, tt.wantMax, in[0], in[len(in)-1])
			}
			if tt.widened {
				if len(in) <= def.Points {
					t.Fatalf("expected a denser curve than %d points, got %d", def.Points, len(in))
				}
				if !kpis.KneeDefined {
					t.Fatalf("expected a knee once the sweep spans I_sat")
				}
			} else if len(in) != def.Points {
				t.Fatalf("expected %d points, got %d", def.Points, len(in))
			}
		})
	}
}
