package material

import "github.com/GoSim-25-26J-441/nlo-screen/pkg/models"

// Model defaults applied when a material leaves the optional constants unset.
const (
	DefaultSaturationIntensity = 1e6
	DefaultSaturableFraction   = 0.6
	DefaultRecoveryTimeSA      = 5e-9
	DefaultRecoveryTimeKerr    = 1e-12
)

// Placeholder literature values; replace with measured data per batch.
func defaultSpecs() []models.MaterialSpec {
	return []models.MaterialSpec{
		{
			Name:                "MOS2",
			Model:               models.ResponseSaturableAbsorber,
			Sourcing:            models.SourcingCommercial,
			N:                   5.5,
			K:                   0.10,
			N2:                  1e-12,
			LayerThicknessNm:    0.65,
			SaturationIntensity: ptr(8e5),
			RecoveryTime:        ptr(5e-9),
			SaturableFraction:   ptr(0.6),
		},
		{
			Name:                "WS2",
			Model:               models.ResponseSaturableAbsorber,
			Sourcing:            models.SourcingCommercial,
			N:                   4.5,
			K:                   0.10,
			N2:                  1e-12,
			LayerThicknessNm:    0.65,
			SaturationIntensity: ptr(6e5),
			RecoveryTime:        ptr(3e-9),
			SaturableFraction:   ptr(0.6),
		},
		{
			Name:             "GRAPHENE",
			Model:            models.ResponseKerr,
			Sourcing:         models.SourcingLab,
			N:                2.5,
			K:                0.0,
			N2:               1e-11,
			LayerThicknessNm: 0.34,
			RecoveryTime:     ptr(1e-12),
		},
	}
}

// DefaultCatalog returns the built-in material table
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSpecs())
	if err != nil {
		// built-in table is static
		panic(err)
	}
	return c
}

// SaturationIntensity returns I_sat or the model default
func SaturationIntensity(spec models.MaterialSpec) float64 {
	if spec.SaturationIntensity != nil {
		return *spec.SaturationIntensity
	}
	return DefaultSaturationIntensity
}

// SaturableFraction returns the bleachable share of absorption or the model default
func SaturableFraction(spec models.MaterialSpec) float64 {
	if spec.SaturableFraction != nil {
		return *spec.SaturableFraction
	}
	return DefaultSaturableFraction
}

// RecoveryTime returns tau or the default for the material's response class
func RecoveryTime(spec models.MaterialSpec) float64 {
	if spec.RecoveryTime != nil {
		return *spec.RecoveryTime
	}
	if spec.Model == models.ResponseKerr {
		return DefaultRecoveryTimeKerr
	}
	return DefaultRecoveryTimeSA
}

func ptr(v float64) *float64 {
	return &v
}
