package emission

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource supplies uniform numbers in [0, 1). Tests inject a scripted
// source to pin denomination choice, spawn position and delay jitter.
type RandomSource interface {
	Float64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a source seeded with seed. A zero seed uses the
// current time.
func NewSeededSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // visual randomness, not security sensitive
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
