package improvement

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/utils"
)

// Strategy proposes the next configuration to evaluate from the records
// produced so far. Passing an empty history restarts the sequence.
type Strategy interface {
	// Propose returns the next configuration, or false when the space is exhausted
	Propose(history []models.ScoreRecord) (models.DeviceConfig, bool)
	// Name returns the name of the strategy
	Name() string
}

// Enumerable is implemented by strategies whose proposals are fixed up front.
// The built-in strategies are enumerable; adaptive ones need not be.
type Enumerable interface {
	// Candidates returns every configuration the strategy would propose, in order
	Candidates() []models.DeviceConfig
}

// CandidateCount returns the number of configurations strategy will propose,
// or -1 when it is not Enumerable and the count is unknown up front.
func CandidateCount(strategy Strategy) int {
	if e, ok := strategy.(Enumerable); ok {
		return len(e.Candidates())
	}
	return -1
}

var (
	_ Enumerable = (*GridStrategy)(nil)
	_ Enumerable = (*ListStrategy)(nil)
	_ Enumerable = (*RandomStrategy)(nil)
)

// StrategyType names a built-in strategy
type StrategyType string

const (
	StrategyGrid   StrategyType = "grid"
	StrategyRandom StrategyType = "random"
	StrategyList   StrategyType = "list"
)

// Space is a discrete configuration space
type Space struct {
	Materials           []string
	Layers              []int
	WavelengthsNm       []float64
	Q                   []float64
	Gamma               []float64
	InteractionLengthUm float64
}

// Size returns the number of points in the Cartesian product
func (s Space) Size() int {
	return len(s.Materials) * len(s.Layers) * len(s.WavelengthsNm) * len(s.Q) * len(s.Gamma)
}

// Validate checks that no axis is empty and every value is physical
func (s Space) Validate() error {
	if len(s.Materials) == 0 {
		return fmt.Errorf("search space has no materials")
	}
	if len(s.Layers) == 0 || len(s.WavelengthsNm) == 0 || len(s.Q) == 0 || len(s.Gamma) == 0 {
		return fmt.Errorf("search space has an empty axis (layers=%d, wavelengths=%d, q=%d, gamma=%d)",
			len(s.Layers), len(s.WavelengthsNm), len(s.Q), len(s.Gamma))
	}
	// every axis value must yield a valid configuration on its own
	probe := models.DeviceConfig{
		Material:            s.Materials[0],
		Layers:              s.Layers[0],
		WavelengthNm:        s.WavelengthsNm[0],
		Q:                   s.Q[0],
		Gamma:               s.Gamma[0],
		InteractionLengthUm: s.InteractionLengthUm,
	}
	for _, m := range s.Materials {
		c := probe
		c.Material = m
		if err := c.Validate(); err != nil {
			return fmt.Errorf("search space: %w", err)
		}
	}
	for _, l := range s.Layers {
		c := probe
		c.Layers = l
		if err := c.Validate(); err != nil {
			return fmt.Errorf("search space: %w", err)
		}
	}
	for _, w := range s.WavelengthsNm {
		c := probe
		c.WavelengthNm = w
		if err := c.Validate(); err != nil {
			return fmt.Errorf("search space: %w", err)
		}
	}
	for _, q := range s.Q {
		c := probe
		c.Q = q
		if err := c.Validate(); err != nil {
			return fmt.Errorf("search space: %w", err)
		}
	}
	for _, g := range s.Gamma {
		c := probe
		c.Gamma = g
		if err := c.Validate(); err != nil {
			return fmt.Errorf("search space: %w", err)
		}
	}
	return nil
}

// GridStrategy walks the Cartesian product of a Space in the fixed order
// material > layers > wavelength > Q > Gamma (Gamma varies fastest).
type GridStrategy struct {
	candidates []models.DeviceConfig
}

// NewGridStrategy enumerates space
func NewGridStrategy(space Space) (*GridStrategy, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	out := make([]models.DeviceConfig, 0, space.Size())
	for _, m := range space.Materials {
		for _, l := range space.Layers {
			for _, w := range space.WavelengthsNm {
				for _, q := range space.Q {
					for _, g := range space.Gamma {
						out = append(out, models.DeviceConfig{
							Material:            m,
							Layers:              l,
							WavelengthNm:        w,
							Q:                   q,
							Gamma:               g,
							InteractionLengthUm: space.InteractionLengthUm,
						})
					}
				}
			}
		}
	}
	return &GridStrategy{candidates: out}, nil
}

func (s *GridStrategy) Name() string {
	return string(StrategyGrid)
}

func (s *GridStrategy) Propose(history []models.ScoreRecord) (models.DeviceConfig, bool) {
	return proposeAt(s.candidates, len(history))
}

func (s *GridStrategy) Candidates() []models.DeviceConfig {
	return cloneConfigs(s.candidates)
}

// ListStrategy evaluates an explicit list of configurations in order.
// Invalid entries are kept and surface as failed records.
type ListStrategy struct {
	candidates []models.DeviceConfig
}

// NewListStrategy wraps candidates
func NewListStrategy(candidates []models.DeviceConfig) (*ListStrategy, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate list is empty")
	}
	return &ListStrategy{candidates: cloneConfigs(candidates)}, nil
}

func (s *ListStrategy) Name() string {
	return string(StrategyList)
}

func (s *ListStrategy) Propose(history []models.ScoreRecord) (models.DeviceConfig, bool) {
	return proposeAt(s.candidates, len(history))
}

func (s *ListStrategy) Candidates() []models.DeviceConfig {
	return cloneConfigs(s.candidates)
}

// Range is a closed sampling interval
type Range struct {
	Min float64
	Max float64
	Log bool // sample log-uniformly
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%s range must be finite", name)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s range max %g is below min %g", name, r.Max, r.Min)
	}
	if r.Log && r.Min <= 0 {
		return fmt.Errorf("%s log range must be positive, got min %g", name, r.Min)
	}
	return nil
}

func (r Range) sample(src *utils.RandSource) float64 {
	if r.Max == r.Min {
		return r.Min
	}
	if r.Log {
		return src.LogUniformFloat64(r.Min, r.Max)
	}
	return src.UniformFloat64(r.Min, r.Max)
}

// RandomSpace bounds a random search
type RandomSpace struct {
	Materials           []string
	MinLayers           int
	MaxLayers           int
	WavelengthNm        Range
	Q                   Range
	Gamma               Range
	InteractionLengthUm float64
}

// DefaultRandomSpace mirrors the reference screening ranges
func DefaultRandomSpace(materials []string) RandomSpace {
	return RandomSpace{
		Materials:    materials,
		MinLayers:    1,
		MaxLayers:    5,
		WavelengthNm: Range{Min: 1300, Max: 1600},
		Q:            Range{Min: 10, Max: 1000, Log: true},
		Gamma:        Range{Min: 0.05, Max: 0.5},
	}
}

// RandomStrategy draws a fixed number of configurations. Sample i is drawn
// from its own generator seeded by (seed, i), so sequences are reproducible
// and independent of evaluation order.
type RandomStrategy struct {
	space   RandomSpace
	samples int
	seed    int64
}

// NewRandomStrategy validates space and fixes the seed. A zero seed selects
// a time-based seed once, at construction.
func NewRandomStrategy(space RandomSpace, samples int, seed int64) (*RandomStrategy, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("random search needs a positive sample count, got %d", samples)
	}
	if len(space.Materials) == 0 {
		return nil, fmt.Errorf("search space has no materials")
	}
	if space.MinLayers <= 0 || space.MaxLayers < space.MinLayers {
		return nil, fmt.Errorf("invalid layer range [%d, %d]", space.MinLayers, space.MaxLayers)
	}
	if err := space.WavelengthNm.validate("wavelength"); err != nil {
		return nil, err
	}
	if err := space.Q.validate("q"); err != nil {
		return nil, err
	}
	if err := space.Gamma.validate("gamma"); err != nil {
		return nil, err
	}
	if space.WavelengthNm.Min <= 0 || space.Q.Min <= 0 {
		return nil, fmt.Errorf("wavelength and q ranges must be positive")
	}
	if space.Gamma.Min <= 0 || space.Gamma.Max > 1 {
		return nil, fmt.Errorf("gamma range must lie in (0, 1], got [%g, %g]", space.Gamma.Min, space.Gamma.Max)
	}
	if seed == 0 {
		seed = rand.Int63() | 1
	}
	return &RandomStrategy{space: space, samples: samples, seed: seed}, nil
}

func (s *RandomStrategy) Name() string {
	return string(StrategyRandom)
}

// Seed returns the effective seed
func (s *RandomStrategy) Seed() int64 {
	return s.seed
}

func (s *RandomStrategy) Propose(history []models.ScoreRecord) (models.DeviceConfig, bool) {
	i := len(history)
	if i >= s.samples {
		return models.DeviceConfig{}, false
	}
	return s.at(i), true
}

func (s *RandomStrategy) Candidates() []models.DeviceConfig {
	out := make([]models.DeviceConfig, s.samples)
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

func (s *RandomStrategy) at(i int) models.DeviceConfig {
	src := utils.NewRandSource(sampleSeed(s.seed, i))
	sp := s.space
	return models.DeviceConfig{
		Material:            sp.Materials[src.Intn(len(sp.Materials))],
		Layers:              src.UniformInt(sp.MinLayers, sp.MaxLayers),
		WavelengthNm:        utils.ClampFloat64(math.Round(sp.WavelengthNm.sample(src)), sp.WavelengthNm.Min, sp.WavelengthNm.Max),
		Q:                   utils.ClampFloat64(utils.Round(sp.Q.sample(src), 1), sp.Q.Min, sp.Q.Max),
		Gamma:               utils.ClampFloat64(utils.Round(sp.Gamma.sample(src), 2), sp.Gamma.Min, sp.Gamma.Max),
		InteractionLengthUm: sp.InteractionLengthUm,
	}
}

// sampleSeed mixes the base seed with the sample index (splitmix64 finalizer)
func sampleSeed(seed int64, i int) int64 {
	z := uint64(seed) + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	out := int64(z >> 1)
	if out == 0 {
		return 1
	}
	return out
}

func proposeAt(candidates []models.DeviceConfig, i int) (models.DeviceConfig, bool) {
	if i < 0 || i >= len(candidates) {
		return models.DeviceConfig{}, false
	}
	return candidates[i], true
}

func cloneConfigs(in []models.DeviceConfig) []models.DeviceConfig {
	out := make([]models.DeviceConfig, len(in))
	copy(out, in)
	return out
}
