// Package rng provides the deterministic pseudo-random source the
// combiner uses for in-cell shuffling (spec.md §4.5). It is owned by a
// single combine call, never process-global (spec.md §9).
package rng

import "math/rand"

// Source is a seeded, deterministic PRNG. Thread safety is the caller's
// responsibility — the combiner only ever uses a Source from one owning
// worker at a time.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
	// Shuffle randomizes the order of a slice of length n in place via
	// swap(i, j).
	Shuffle(n int, swap func(i, j int))
}

type mathRandSource struct {
	r *rand.Rand
}

// New returns a Source seeded deterministically from seed: the same seed
// always produces the same sequence.
func New(seed int64) Source {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))}
}

func (s *mathRandSource) Float64() float64 {
	return s.r.Float64()
}

func (s *mathRandSource) Intn(n int) int {
	return s.r.Intn(n)
}

func (s *mathRandSource) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}
