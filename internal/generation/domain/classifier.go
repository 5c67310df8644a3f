package generation

import (
	"fmt"

	"smartmeter-synth/internal/generation/domain/random"
)

// DayClassifier assigns a classification to each meter-day.
type DayClassifier struct {
	estimatedRate float64
	missingRate   float64
}

// NewDayClassifier constructs a classifier from the configured rates.
func NewDayClassifier(estimatedRate, missingRate float64) (*DayClassifier, error) {
	if estimatedRate < 0 || missingRate < 0 || estimatedRate+missingRate > 1 {
		return nil, fmt.Errorf("%w: classification rates %.4f/%.4f", ErrInvalidArgument, estimatedRate, missingRate)
	}
	return &DayClassifier{estimatedRate: estimatedRate, missingRate: missingRate}, nil
}

// Classify draws exactly one value from src.
func (c *DayClassifier) Classify(src random.Source) Classification {
	draw := src.NextDouble()
	switch {
	case draw < c.missingRate:
		return ClassificationMissing
	case draw < c.missingRate+c.estimatedRate:
		return ClassificationEstimated
	default:
		return ClassificationActual
	}
}
