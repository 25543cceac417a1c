package testutil

import (
	"math/rand"
	"sync"
)

// VectorSource yields reproducible pseudo-random float32 vectors.
//
// Two sources created with the same seed produce identical sequences, so
// property-style kernel tests stay stable across runs and platforms.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type VectorSource struct {
	mu   sync.Mutex
	seed int64
	rng  *rand.Rand
}

// NewVectorSource creates a source seeded with seed.
func NewVectorSource(seed int64) *VectorSource {
	return &VectorSource{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Vector returns n normally distributed components.
func (s *VectorSource) Vector(n int) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(s.rng.NormFloat64())
	}
	return v
}

// Vectors returns count vectors of length dim.
func (s *VectorSource) Vectors(count, dim int) [][]float32 {
	out := make([][]float32, count)
	for i := range out {
		out[i] = s.Vector(dim)
	}
	return out
}

// Intn returns a value in [0, n), drawn from the same stream as Vector.
func (s *VectorSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Reset rewinds the source to its seed.
//
// After Reset the source repeats the sequence it produced when new.
func (s *VectorSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(s.seed))
}
