package config

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields in place
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Scorer.Objective == "" {
		cfg.Scorer.Objective = ObjectiveFigureOfMerit
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = DefaultGRPCAddr
	}
	applySearchDefaults(&cfg.Search)
}

func applySearchDefaults(s *Search) {
	if s.Strategy == "" {
		if len(s.Candidates) > 0 {
			s.Strategy = StrategyList
		} else {
			s.Strategy = StrategyGrid
		}
	}
	if len(s.Sourcing) == 0 {
		s.Sourcing = slices.Clone(DefaultSourcing)
	}
	if len(s.Layers) == 0 {
		s.Layers = slices.Clone(DefaultLayers)
	}
	if len(s.WavelengthsNm) == 0 {
		s.WavelengthsNm = slices.Clone(DefaultWavelengthsNm)
	}
	if len(s.Q) == 0 {
		s.Q = slices.Clone(DefaultQ)
	}
	if len(s.Gamma) == 0 {
		s.Gamma = slices.Clone(DefaultGamma)
	}
	if s.Strategy == StrategyRandom {
		if s.Samples == 0 {
			s.Samples = DefaultSamples
		}
		if s.Seed == 0 {
			s.Seed = DefaultSeed
		}
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	names := make(map[string]bool)
	for i, m := range cfg.Materials {
		name := strings.ToUpper(strings.TrimSpace(m.Name))
		if name == "" {
			return fmt.Errorf("materials[%d]: name cannot be empty", i)
		}
		if names[name] {
			return fmt.Errorf("duplicate material: %s", name)
		}
		names[name] = true
	}

	if cfg.Sweep != nil {
		if err := validateSweep(cfg.Sweep); err != nil {
			return fmt.Errorf("sweep validation failed: %w", err)
		}
	}
	if err := validateScorer(&cfg.Scorer); err != nil {
		return fmt.Errorf("scorer validation failed: %w", err)
	}
	if err := validateSearch(&cfg.Search); err != nil {
		return fmt.Errorf("search validation failed: %w", err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	return nil
}

func validateServer(s *Server) error {
	if rl := s.RateLimit; rl != nil && rl.Enabled {
		if rl.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive when enabled")
		}
		if rl.Burst < 0 {
			return fmt.Errorf("rate_limit.burst cannot be negative")
		}
	}
	if cb := s.Callbacks; cb != nil {
		if cb.MaxRetries < 0 {
			return fmt.Errorf("callbacks.max_retries cannot be negative")
		}
		if cb.BaseMs < 0 {
			return fmt.Errorf("callbacks.base_ms cannot be negative")
		}
		switch cb.Backoff {
		case "", BackoffExponential, BackoffLinear, BackoffConstant:
		default:
			return fmt.Errorf("unknown callbacks.backoff %q (must be exponential, linear, or constant)", cb.Backoff)
		}
	}
	return nil
}

func validateSweep(s *Sweep) error {
	if s.MinIntensity <= 0 {
		return fmt.Errorf("min_intensity_w_m2 must be positive")
	}
	if s.MaxIntensity <= s.MinIntensity {
		return fmt.Errorf("max_intensity_w_m2 must exceed min_intensity_w_m2")
	}
	if s.Points < 50 {
		return fmt.Errorf("points must be at least 50, got %d", s.Points)
	}
	if s.DeviceAreaUm2 < 0 {
		return fmt.Errorf("device_area_um2 cannot be negative")
	}
	return nil
}

func validateScorer(s *Scorer) error {
	switch s.Objective {
	case ObjectiveFigureOfMerit, ObjectiveContrastPerEnergy:
	default:
		return fmt.Errorf("invalid objective: %s (must be %s or %s)", s.Objective, ObjectiveFigureOfMerit, ObjectiveContrastPerEnergy)
	}
	if s.Weights == nil {
		return nil
	}
	for name, w := range map[string]*float64{
		"contrast":      s.Weights.Contrast,
		"transmission":  s.Weights.Transmission,
		"energy":        s.Weights.Energy,
		"response_time": s.Weights.ResponseTime,
	} {
		if w != nil && (*w < 0 || math.IsNaN(*w) || math.IsInf(*w, 0)) {
			return fmt.Errorf("weight %s must be a non-negative finite number", name)
		}
	}
	return nil
}

func validateSearch(s *Search) error {
	switch s.Strategy {
	case StrategyGrid, StrategyRandom, StrategyList:
	default:
		return fmt.Errorf("invalid strategy: %s (must be grid, random, or list)", s.Strategy)
	}
	for _, src := range s.Sourcing {
		switch src {
		case models.SourcingCommercial, models.SourcingLab, models.SourcingExperimental:
		default:
			return fmt.Errorf("invalid sourcing: %s", src)
		}
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if s.Patience < 0 {
		return fmt.Errorf("patience cannot be negative")
	}
	if s.InteractionLengthUm < 0 {
		return fmt.Errorf("interaction_length_um cannot be negative")
	}

	switch s.Strategy {
	case StrategyList:
		if len(s.Candidates) == 0 {
			return fmt.Errorf("list strategy requires at least one candidate")
		}
	case StrategyRandom:
		if s.Samples <= 0 {
			return fmt.Errorf("random strategy requires positive samples, got %d", s.Samples)
		}
		fallthrough
	case StrategyGrid:
		for _, l := range s.Layers {
			if l <= 0 {
				return fmt.Errorf("layers must be positive, got %d", l)
			}
		}
		if err := positiveAll("wavelengths_nm", s.WavelengthsNm); err != nil {
			return err
		}
		if err := positiveAll("q", s.Q); err != nil {
			return err
		}
		for _, g := range s.Gamma {
			if !(g > 0 && g <= 1) {
				return fmt.Errorf("gamma must be in (0, 1], got %g", g)
			}
		}
	}
	return nil
}

func positiveAll(name string, values []float64) error {
	for _, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s values must be positive and finite, got %g", name, v)
		}
	}
	return nil
}
