package utils

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RandSource is a thread-safe random number generator
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed selects a time-based seed.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// LogUniformFloat64 returns a number whose logarithm is uniform over
// [log(min), log(max)). Both bounds must be positive.
func (r *RandSource) LogUniformFloat64(min, max float64) float64 {
	lo, hi := math.Log(min), math.Log(max)
	return math.Exp(lo + r.Float64()*(hi-lo))
}

// UniformInt returns a uniformly distributed integer in [min, max]
func (r *RandSource) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}
