package simulator

import (
	"fmt"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

// FromConfig builds a simulator over the default catalog merged with the
// configured materials, using the configured sweep when present.
func FromConfig(cfg *config.Config) (*Simulator, error) {
	catalog, err := material.DefaultCatalog().Merge(cfg.Materials)
	if err != nil {
		return nil, fmt.Errorf("failed to build material catalog: %w", err)
	}
	sim := New(catalog)
	if cfg.Sweep == nil {
		return sim, nil
	}
	sim, err = sim.WithSweep(Sweep{
		MinIntensity: cfg.Sweep.MinIntensity,
		MaxIntensity: cfg.Sweep.MaxIntensity,
		Points:       cfg.Sweep.Points,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Sweep.DeviceAreaUm2 > 0 {
		if sim, err = sim.WithDeviceArea(cfg.Sweep.DeviceAreaUm2 * 1e-12); err != nil {
			return nil, err
		}
	}
	return sim, nil
}
