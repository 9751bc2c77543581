// Package rating supplies the randomness used by the balancing engines.
//
// Every random decision (tie shuffles, swap tie-breaks, candidate draws) goes
// through a Source so that runs can be replayed in tests.
package rating

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source returns uniformly distributed values in [0,1).
type Source interface {
	Float64() float64
}

// pcgSource is the default Source backed by a PCG generator.
type pcgSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDefaultSource returns a Source seeded from crypto/rand.
func NewDefaultSource() Source {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// runtime-seeded global generator just in case.
		return NewSeededSource(rand.Uint64())
	}
	return &pcgSource{
		rng: rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))), //nolint:gosec // not used for security
	}
}

// NewSeededSource returns a deterministic Source for the given seed.
func NewSeededSource(seed uint64) Source {
	return &pcgSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // deterministic by design of the caller
	}
}

func (s *pcgSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SequenceSource replays a fixed list of values, cycling when exhausted.
// An empty sequence always yields 0.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequenceSource creates a SequenceSource over values. Values outside
// [0,1) are clamped into range.
func NewSequenceSource(values ...float64) *SequenceSource {
	vs := make([]float64, len(values))
	for i, v := range values {
		vs[i] = clamp(v)
	}
	return &SequenceSource{values: vs}
}

// Float64 returns the next value of the sequence.
func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed.
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Intn maps the next value of src onto [0,n). It returns 0 when n <= 0.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func clamp(v float64) float64 {
	const justBelowOne = 0.9999999999999999
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return justBelowOne
	default:
		return v
	}
}
