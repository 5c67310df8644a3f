package random

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

// Entropy is a non-reproducible stream keyed from the operating system's
// entropy pool. Methods are safe for concurrent use.
type Entropy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEntropy constructs a stream with a fresh ChaCha8 key.
func NewEntropy() (*Entropy, error) {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, err
	}
	return &Entropy{rng: rand.New(rand.NewChaCha8(key))}, nil
}

// NextDouble returns a value in [0,1).
func (e *Entropy) NextDouble() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// NextInt returns a value in [0,max).
func (e *Entropy) NextInt(max int) (int, error) {
	if err := checkMax(max); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(max), nil
}

// NextIntRange returns a value in [min,max).
func (e *Entropy) NextIntRange(min, max int) (int, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(uint64(min) + e.rng.Uint64N(span(min, max))), nil
}

// IsDeterministic always reports false.
func (e *Entropy) IsDeterministic() bool { return false }

// Seed reports no seed.
func (e *Entropy) Seed() (int64, bool) { return 0, false }
