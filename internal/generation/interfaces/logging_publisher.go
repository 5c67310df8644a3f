package interfaces

import (
	"context"
	"errors"
	"log"

	"smartmeter-synth/internal/generation/application/eventbus"
	"smartmeter-synth/internal/generation/application/events"
	generation "smartmeter-synth/internal/generation/domain"
)

// LoggingSubscriber logs completed generation runs.
type LoggingSubscriber struct {
	logger *log.Logger
}

// NewLoggingSubscriber constructs a logging subscriber.
func NewLoggingSubscriber(logger *log.Logger) *LoggingSubscriber {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingSubscriber{logger: logger}
}

// Register subscribes the logger to run events on bus.
func (s *LoggingSubscriber) Register(bus eventbus.EventBus) {
	eventbus.NewTopic[events.DatasetGenerated](bus).Subscribe(s.HandleDatasetGenerated)
}

// HandleDatasetGenerated logs the event.
func (s *LoggingSubscriber) HandleDatasetGenerated(ctx context.Context, event events.DatasetGenerated) error {
	_ = ctx
	if s == nil {
		return errors.New("generation subscriber: nil subscriber")
	}
	seed := "none"
	if event.Deterministic {
		seed = FormatSeed(event.Seed)
	}
	s.logger.Printf("dataset generated: run=%s seed=%s business=%s range=%s..%s meters=%d days=%d/%d/%d collisions=%d took=%s",
		event.RunID, seed, event.BusinessType,
		event.StartDate.Format(generation.DateLayout), event.EndDate.Format(generation.DateLayout),
		event.Meters, event.DaysActual, event.DaysEstimated, event.DaysMissing, event.Collisions, event.Duration)
	return nil
}
