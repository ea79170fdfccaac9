package response

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

func ws2Absorber(layers int) *SaturableAbsorber {
	return NewSaturableAbsorber(SaturableAbsorberParams{
		ExtinctionK:         0.10,
		Wavelength:          1300e-9,
		Thickness:           0.65e-9 * float64(layers),
		SaturationIntensity: 6e5,
		SaturableFraction:   0.6,
	})
}

func TestSmallSignalAbsorption(t *testing.T) {
	// 5 layers of 0.65 nm at 1300 nm with k = 0.1
	got := SmallSignalAbsorption(0.10, 1300e-9, 3.25e-9)
	want := 1 - math.Exp(-4*math.Pi*0.10/1300e-9*3.25e-9)
	if math.Abs(got-want) > 1e-15 {
		t.Fatalf("expected %g, got %g", want, got)
	}
	if SmallSignalAbsorption(0, 1300e-9, 1e-9) != 0 {
		t.Fatalf("expected zero absorption for k = 0")
	}
	if SmallSignalAbsorption(0.1, 0, 1e-9) != 0 {
		t.Fatalf("expected zero absorption for non-positive wavelength")
	}
}

func TestSaturableAbsorberShape(t *testing.T) {
	sa := ws2Absorber(5)

	low := sa.Evaluate(0)
	if math.Abs(low-sa.UnsaturatedTransmission()) > 1e-15 {
		t.Fatalf("T(0) = %g, expected unsaturated transmission %g", low, sa.UnsaturatedTransmission())
	}

	// At I_sat the saturable term has bleached halfway
	mid := sa.Evaluate(6e5)
	wantMid := sa.UnsaturatedTransmission() + sa.ModulationDepth()/2
	if math.Abs(mid-wantMid) > 1e-12 {
		t.Fatalf("T(Isat) = %g, expected %g", mid, wantMid)
	}

	// Monotone increasing and bounded
	prev := -1.0
	for _, in := range utils.Logspace(0, 10, 200) {
		v := sa.Evaluate(in)
		if v < 0 || v > 1 {
			t.Fatalf("transmission %g outside [0,1] at I=%g", v, in)
		}
		if v < prev {
			t.Fatalf("transmission decreased at I=%g", in)
		}
		prev = v
	}

	if _, ok := sa.KneeIntensity(); ok {
		t.Fatalf("saturable absorber knee is located on the sampled curve")
	}
	knee, ok := sa.SaturationKnee()
	if !ok || knee != 6e5 {
		t.Fatalf("expected saturation knee 6e5, got %g (ok=%v)", knee, ok)
	}
}

func TestSaturableAbsorberLayerCompounding(t *testing.T) {
	// Beer-Lambert: transmission of L layers = (single-layer transmission)^L
	one := ws2Absorber(1).UnsaturatedTransmission()
	three := ws2Absorber(3).UnsaturatedTransmission()
	if math.Abs(three-math.Pow(one, 3)) > 1e-12 {
		t.Fatalf("expected T(3) = T(1)^3: %g vs %g", three, math.Pow(one, 3))
	}
	if !(ws2Absorber(1).UnsaturatedTransmission() > ws2Absorber(3).UnsaturatedTransmission() &&
		ws2Absorber(3).UnsaturatedTransmission() > ws2Absorber(5).UnsaturatedTransmission()) {
		t.Fatalf("expected T0 to decrease with layer count")
	}
}

func TestSaturableAbsorberNothingSaturable(t *testing.T) {
	sa := NewSaturableAbsorber(SaturableAbsorberParams{
		ExtinctionK: 0.1, Wavelength: 1e-6, Thickness: 1e-9,
		SaturationIntensity: 1e6, SaturableFraction: 0,
	})
	if _, ok := sa.SaturationKnee(); ok {
		t.Fatalf("expected no knee without a saturable fraction")
	}
	if sa.Evaluate(1) != sa.Evaluate(1e9) {
		t.Fatalf("expected flat response")
	}
}

func TestKerrInterferometer(t *testing.T) {
	k := NewKerrInterferometer(KerrParams{
		N2:                1e-11,
		Wavelength:        1550e-9,
		InteractionLength: 50e-6,
		Q:                 200,
		Gamma:             0.2,
	})

	if got := k.Evaluate(0); got != 1 {
		t.Fatalf("expected full transmission at zero phase, got %g", got)
	}

	knee, ok := k.KneeIntensity()
	if !ok {
		t.Fatalf("expected closed-form knee")
	}
	if phi := k.Phase(knee); math.Abs(phi-math.Pi/2) > 1e-12 {
		t.Fatalf("expected pi/2 at knee, got %g", phi)
	}
	if got := k.Evaluate(knee); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected T = 0.5 at knee, got %g", got)
	}
	half, _ := k.HalfPeriodIntensity()
	if got := k.Evaluate(half); got > 1e-12 {
		t.Fatalf("expected transmission null at half period, got %g", got)
	}

	wantKnee := (math.Pi / 2) / (2 * math.Pi / 1550e-9 * 1e-11 * 50e-6 * FieldEnhancement(200) * 0.2)
	if math.Abs(knee-wantKnee)/wantKnee > 1e-12 {
		t.Fatalf("expected knee %g, got %g", wantKnee, knee)
	}
}

func TestKerrWithoutNonlinearity(t *testing.T) {
	k := NewKerrInterferometer(KerrParams{N2: 0, Wavelength: 1e-6, InteractionLength: 1e-5, Q: 10, Gamma: 0.5})
	if _, ok := k.KneeIntensity(); ok {
		t.Fatalf("expected undefined knee for n2 = 0")
	}
}

func TestFieldEnhancement(t *testing.T) {
	if FieldEnhancement(0) != 1 {
		t.Fatalf("expected no enhancement at Q = 0")
	}
	if got := FieldEnhancement(500); math.Abs(got-2) > 1e-12 {
		t.Fatalf("expected enhancement 2 at Q = 500, got %g", got)
	}
}

func TestForMaterial(t *testing.T) {
	cat := material.DefaultCatalog()
	cfg := models.DeviceConfig{Material: "WS2", WavelengthNm: 1300, Layers: 5, Q: 391.7, Gamma: 0.5}

	ws2, _ := cat.Lookup("WS2")
	m, err := ForMaterial(ws2, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name() != "saturable_absorber" {
		t.Fatalf("expected saturable_absorber, got %s", m.Name())
	}

	gr, _ := cat.Lookup("GRAPHENE")
	cfg.Material = "GRAPHENE"
	m, err = ForMaterial(gr, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name() != "kerr_interferometer" {
		t.Fatalf("expected kerr_interferometer, got %s", m.Name())
	}

	// more layers lengthen the Kerr interaction and lower the knee
	k1, _ := m.KneeIntensity()
	cfg.Layers = 10
	m10, _ := ForMaterial(gr, cfg)
	k10, _ := m10.KneeIntensity()
	if math.Abs(k1/k10-2) > 1e-9 {
		t.Fatalf("expected doubling layers to halve the knee: %g vs %g", k1, k10)
	}

	if _, err := ForMaterial(models.MaterialSpec{Name: "X", Model: "bolometer"}, cfg); err == nil {
		t.Fatalf("expected error for unknown model class")
	}
}

func TestSample(t *testing.T) {
	sa := ws2Absorber(1)
	in := []float64{1, 10, 100}
	out := Sample(sa, in)
	if len(out) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(out))
	}
	for i := range in {
		if out[i] != sa.Evaluate(in[i]) {
			t.Fatalf("sample %d mismatch", i)
		}
	}
}
