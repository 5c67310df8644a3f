package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartmeter-synth/internal/generation/application/eventbus"
	"smartmeter-synth/internal/generation/application/events"
	generation "smartmeter-synth/internal/generation/domain"
	"smartmeter-synth/internal/generation/domain/random"
	"smartmeter-synth/internal/observability/metrics"
)

const (
	// DefaultMaxMeters caps the meters a single run may synthesize.
	DefaultMaxMeters = 10000
	// DefaultMaxDays caps the calendar days a single run may span.
	DefaultMaxDays = 3660
	// DefaultMaxPeriodValues caps meters x days x periods per day for a single run.
	DefaultMaxPeriodValues = 5_000_000
)

// Limits bounds the size of a single run.
type Limits struct {
	MaxMeters       int `json:"max_meters"`
	MaxDays         int `json:"max_days"`
	MaxPeriodValues int `json:"max_period_values"`
}

// Result is a completed generation run.
type Result struct {
	RunID   string
	Dataset *generation.Dataset
}

// Option configures a Service.
type Option func(*Service)

// WithLimits overrides the run size limits. Non-positive values keep the defaults.
func WithLimits(limits Limits) Option {
	return func(s *Service) {
		if limits.MaxMeters > 0 {
			s.limits.MaxMeters = limits.MaxMeters
		}
		if limits.MaxDays > 0 {
			s.limits.MaxDays = limits.MaxDays
		}
		if limits.MaxPeriodValues > 0 {
			s.limits.MaxPeriodValues = limits.MaxPeriodValues
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs generation requests and announces completed runs.
type Service struct {
	generator *generation.Generator
	runs      eventbus.Topic[events.DatasetGenerated]
	defaults  generation.Configuration
	limits    Limits
	now       func() time.Time
}

// NewService constructs a generation service.
func NewService(generator *generation.Generator, publisher eventbus.EventBus, defaults generation.Configuration, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, errors.New("generation: nil generator")
	}
	if publisher == nil {
		return nil, errors.New("generation: nil publisher")
	}
	s := &Service{
		generator: generator,
		runs:      eventbus.NewTopic[events.DatasetGenerated](publisher),
		defaults:  defaults,
		limits:    Limits{MaxMeters: DefaultMaxMeters, MaxDays: DefaultMaxDays, MaxPeriodValues: DefaultMaxPeriodValues},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Defaults returns a copy of the configuration requests are overlaid on.
func (s *Service) Defaults() generation.Configuration {
	cfg := s.defaults
	cfg.MeterIDs = append(cfg.MeterIDs[:0:0], s.defaults.MeterIDs...)
	return cfg
}

// Limits returns the active run limits.
func (s *Service) Limits() Limits {
	return s.limits
}

// Resolve overlays req on the service defaults.
func (s *Service) Resolve(req GenerateRequest) (generation.Configuration, error) {
	return req.Apply(s.defaults)
}

// GenerateRequest resolves req and runs it.
func (s *Service) GenerateRequest(ctx context.Context, req GenerateRequest) (*Result, error) {
	cfg, err := s.Resolve(req)
	if err != nil {
		metrics.ObserveGeneration(metrics.ResultInvalid, 0)
		return nil, err
	}
	return s.Generate(ctx, cfg)
}

// Generate runs a single generation and publishes DatasetGenerated.
func (s *Service) Generate(ctx context.Context, cfg generation.Configuration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := s.now()

	cfg.BusinessType = generation.NormalizeBusinessType(string(cfg.BusinessType))
	if err := s.checkLimits(cfg); err != nil {
		metrics.ObserveGeneration(metrics.ResultInvalid, s.now().Sub(started))
		return nil, err
	}

	seed, deterministic := generation.ResolveSeed(cfg)
	src, err := random.NewSource(deterministic, seed)
	if err != nil {
		metrics.ObserveGeneration(metrics.ResultError, s.now().Sub(started))
		return nil, fmt.Errorf("generation: random source: %w", err)
	}

	dataset, err := s.generator.Generate(cfg, src)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, generation.ErrInvalidArgument) {
			result = metrics.ResultInvalid
		}
		metrics.ObserveGeneration(result, s.now().Sub(started))
		return nil, err
	}

	elapsed := s.now().Sub(started)
	actual, estimated, missing := dataset.DayCounts()
	metrics.ObserveGeneration(metrics.ResultSuccess, elapsed)
	metrics.ObserveDataset(len(dataset.Meters), actual, estimated, missing, dataset.Collisions)

	result := &Result{RunID: uuid.NewString(), Dataset: dataset}
	event := events.DatasetGenerated{
		RunID:         result.RunID,
		Seed:          dataset.Seed,
		Deterministic: dataset.Deterministic,
		BusinessType:  dataset.BusinessType,
		SiteName:      dataset.SiteName,
		StartDate:     generation.DateOf(cfg.StartDate),
		EndDate:       generation.DateOf(cfg.EndDate),
		PeriodMinutes: dataset.PeriodMinutes,
		Meters:        len(dataset.Meters),
		DaysActual:    actual,
		DaysEstimated: estimated,
		DaysMissing:   missing,
		Collisions:    dataset.Collisions,
		Duration:      elapsed,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.runs.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("generation: publish: %w", err)
	}
	return result, nil
}

func (s *Service) checkLimits(cfg generation.Configuration) error {
	if meters := cfg.EffectiveMeterCount(); meters > s.limits.MaxMeters {
		return fmt.Errorf("%w: %d meters exceeds limit %d", generation.ErrInvalidArgument, meters, s.limits.MaxMeters)
	}
	days := cfg.DayCount()
	if days > s.limits.MaxDays {
		return fmt.Errorf("%w: %d days exceeds limit %d", generation.ErrInvalidArgument, days, s.limits.MaxDays)
	}
	values := int64(cfg.EffectiveMeterCount()) * int64(days) * int64(cfg.PeriodsPerDay())
	if values > int64(s.limits.MaxPeriodValues) {
		return fmt.Errorf("%w: %d period values exceeds limit %d", generation.ErrInvalidArgument, values, s.limits.MaxPeriodValues)
	}
	return nil
}
