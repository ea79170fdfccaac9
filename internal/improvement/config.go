package improvement

import (
	"fmt"
	"slices"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/simulator"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
)

// ObjectiveFromConfig builds the configured objective, overlaying configured
// weights on the defaults
func ObjectiveFromConfig(s config.Scorer) (Objective, error) {
	w := DefaultWeights()
	if s.Weights != nil {
		if s.Weights.Contrast != nil {
			w.Contrast = *s.Weights.Contrast
		}
		if s.Weights.Transmission != nil {
			w.Transmission = *s.Weights.Transmission
		}
		if s.Weights.Energy != nil {
			w.Energy = *s.Weights.Energy
		}
		if s.Weights.ResponseTime != nil {
			w.ResponseTime = *s.Weights.ResponseTime
		}
	}
	return NewObjective(s.Objective, w)
}

// StrategyFromConfig builds the configured strategy. Grid and random searches
// draw materials through the sourcing filter; list searches use the
// candidates verbatim.
func StrategyFromConfig(s config.Search, catalog *material.Catalog) (Strategy, error) {
	switch StrategyType(s.Strategy) {
	case StrategyList:
		return NewListStrategy(s.Candidates)
	case StrategyGrid, "":
		return NewGridStrategy(Space{
			Materials:           SearchableMaterials(catalog, s.Materials, s.Sourcing),
			Layers:              s.Layers,
			WavelengthsNm:       s.WavelengthsNm,
			Q:                   s.Q,
			Gamma:               s.Gamma,
			InteractionLengthUm: s.InteractionLengthUm,
		})
	case StrategyRandom:
		if len(s.Layers) == 0 || len(s.WavelengthsNm) == 0 || len(s.Q) == 0 || len(s.Gamma) == 0 {
			return nil, fmt.Errorf("random search needs layers, wavelengths_nm, q and gamma bounds")
		}
		return NewRandomStrategy(RandomSpace{
			Materials:           SearchableMaterials(catalog, s.Materials, s.Sourcing),
			MinLayers:           slices.Min(s.Layers),
			MaxLayers:           slices.Max(s.Layers),
			WavelengthNm:        Range{Min: slices.Min(s.WavelengthsNm), Max: slices.Max(s.WavelengthsNm)},
			Q:                   Range{Min: slices.Min(s.Q), Max: slices.Max(s.Q), Log: true},
			Gamma:               Range{Min: slices.Min(s.Gamma), Max: slices.Max(s.Gamma)},
			InteractionLengthUm: s.InteractionLengthUm,
		}, s.Samples, s.Seed)
	default:
		return nil, fmt.Errorf("unknown strategy: %s", s.Strategy)
	}
}

// SearcherFromConfig wires a searcher for cfg over sim
func SearcherFromConfig(sim *simulator.Simulator, cfg *config.Config) (*Searcher, error) {
	obj, err := ObjectiveFromConfig(cfg.Scorer)
	if err != nil {
		return nil, err
	}
	s := NewSearcher(sim, obj).WithCurves(cfg.Search.KeepCurves)
	if cfg.Search.Patience > 0 {
		s.WithStopCondition(&NoImprovementCondition{Patience: cfg.Search.Patience})
	}
	return s, nil
}
