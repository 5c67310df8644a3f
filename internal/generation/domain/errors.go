package generation

import (
	"errors"

	"smartmeter-synth/internal/generation/domain/random"
)

var (
	// ErrInvalidArgument is returned for malformed configurations and random source bounds.
	ErrInvalidArgument = random.ErrInvalidArgument
	// ErrGenerationExhausted is returned when no free MPAN is found within the attempt cap.
	ErrGenerationExhausted = errors.New("generation: identifier space exhausted")
	// ErrNilSource is returned when a run is started without a random source.
	ErrNilSource = errors.New("generation: nil random source")
)
