package random

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed bounds. The generation domain
// reuses it for malformed configurations.
var ErrInvalidArgument = errors.New("invalid argument")

// Source is a pseudo-random stream used by one generation run.
type Source interface {
	// NextDouble returns a value in [0,1).
	NextDouble() float64
	// NextInt returns a value in [0,max).
	NextInt(max int) (int, error)
	// NextIntRange returns a value in [min,max).
	NextIntRange(min, max int) (int, error)
	// IsDeterministic reports whether the stream is reproducible from its seed.
	IsDeterministic() bool
	// Seed returns the seed and true for deterministic sources.
	Seed() (int64, bool)
}

// NewSource selects the implementation for a run.
// An explicit seed always yields a deterministic stream.
func NewSource(deterministic bool, seed *int64) (Source, error) {
	if seed != nil {
		return NewDeterministic(*seed), nil
	}
	if deterministic {
		return nil, errors.New("random: deterministic source requires a seed")
	}
	return NewEntropy()
}

func checkMax(max int) error {
	if max <= 0 {
		return fmt.Errorf("%w: max must be positive, got %d", ErrInvalidArgument, max)
	}
	return nil
}

func checkRange(min, max int) error {
	if min >= max {
		return fmt.Errorf("%w: min %d must be below max %d", ErrInvalidArgument, min, max)
	}
	return nil
}

// span returns max-min as an unsigned width, valid even when the signed difference overflows.
func span(min, max int) uint64 {
	return uint64(max) - uint64(min)
}
