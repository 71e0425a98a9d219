// Package entropy provides the simulation's single source of randomness.
// Every stochastic draw goes through one seeded Source so a run replays
// deterministically from its seed.
package entropy

import (
	"math"
	"math/rand"
)

// Source wraps a seeded PRNG. Not safe for concurrent use; the simulation
// steps on a single goroutine.
type Source struct {
	rng *rand.Rand
}

// NewSource creates a Source from a seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float returns a random float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// IntN returns a random int in [0, n). n must be > 0.
func (s *Source) IntN(n int) int {
	return s.rng.Intn(n)
}

// IntBetween returns a random int in [lo, hi] inclusive.
func (s *Source) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Normal returns a normally distributed float64 with the given mean and
// standard deviation.
func (s *Source) Normal(mean, stddev float64) float64 {
	return mean + s.rng.NormFloat64()*stddev
}

// Exponential returns an exponentially distributed float64 with the given mean.
func (s *Source) Exponential(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	u := s.rng.Float64()
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	return -mean * math.Log(1-u)
}

// Sample picks k distinct indices from [0, n) without replacement.
// When k >= n it returns all n indices in shuffled order.
func (s *Source) Sample(n, k int) []int {
	perm := s.rng.Perm(n)
	if k > n {
		k = n
	}
	return perm[:k]
}
