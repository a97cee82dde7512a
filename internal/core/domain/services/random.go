package services

import (
	"math/rand/v2"
)

// RandomSource is the subset of *rand.Rand the services draw from.
type RandomSource interface {
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Int64N returns a uniform value in [0, n). It panics if n <= 0.
	Int64N(n int64) int64
}

// NewRandomSource returns the process-wide generator of math/rand/v2. It is
// safe for concurrent use.
func NewRandomSource() RandomSource {
	return globalSource{}
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

func (globalSource) Int64N(n int64) int64 {
	return rand.Int64N(n)
}

// NewSeededRandomSource returns a deterministic source. It is not safe for
// concurrent use.
func NewSeededRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// intBetween draws uniformly from the closed interval [lo, hi].
func intBetween(src RandomSource, lo, hi int) int {
	return lo + src.IntN(hi-lo+1)
}

// int64Between draws uniformly from the closed interval [lo, hi].
func int64Between(src RandomSource, lo, hi int64) int64 {
	return lo + src.Int64N(hi-lo+1)
}
