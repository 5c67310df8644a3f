package generation

import (
	"fmt"

	"github.com/google/uuid"

	"smartmeter-synth/internal/generation/domain/random"
)

// Generator runs the single-run pipeline: identifiers, classification,
// profile synthesis and aggregation. It holds no state between runs.
type Generator struct {
	profile     *ProfileEngine
	mpanOptions []MpanOption
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMpanOptions forwards options to the per-run MPAN assigner.
func WithMpanOptions(opts ...MpanOption) GeneratorOption {
	return func(g *Generator) {
		g.mpanOptions = append(g.mpanOptions, opts...)
	}
}

// NewGenerator constructs a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{profile: NewProfileEngine()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the dataset for cfg using src as the only randomness.
// Draw order is fixed: meter ids (when not supplied), then per meter its
// scale followed by one classification draw and the period jitters of each day.
func (g *Generator) Generate(cfg Configuration, src random.Source) (*Dataset, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := NewDayClassifier(cfg.EstimatedRate, cfg.MissingRate)
	if err != nil {
		return nil, err
	}

	ids, err := meterIDs(cfg, src)
	if err != nil {
		return nil, err
	}
	assigner := NewMpanAssigner(g.mpanOptions...)
	identities, err := assigner.AssignAll(ids)
	if err != nil {
		return nil, err
	}

	businessType := NormalizeBusinessType(string(cfg.BusinessType))
	periodsPerDay := cfg.PeriodsPerDay()
	days := cfg.Days()
	start := DateOf(cfg.StartDate)
	end := DateOf(cfg.EndDate)

	dataset := &Dataset{
		Deterministic: src.IsDeterministic(),
		BusinessType:  businessType,
		SiteName:      cfg.SiteName,
		PeriodMinutes: cfg.Period,
		Collisions:    assigner.Collisions(),
		Meters:        make([]MeterDataset, 0, len(identities)),
	}
	if seed, ok := src.Seed(); ok {
		dataset.Seed = seed
	}

	for _, identity := range identities {
		scale := g.profile.MeterScale(src)
		agg := NewYearlyAggregator()
		for _, day := range days {
			measurement := DayMeasurement{
				Date:           day,
				QuantityID:     QuantityImportActive,
				Classification: classifier.Classify(src),
			}
			if measurement.Classification != ClassificationMissing {
				values, err := g.profile.DayQuantities(businessType, day, periodsPerDay, scale, src)
				if err != nil {
					return nil, err
				}
				indicator := measurement.Classification.Indicator()
				measurement.Periods = make([]PeriodMeasurement, periodsPerDay)
				for i, value := range values {
					measurement.Periods[i] = PeriodMeasurement{Period: i + 1, Quantity: value, Indicator: indicator}
				}
			}
			agg.Add(measurement)
		}

		yearly, actual, estimated, missing := agg.Result()
		if yearly.TotalDays() != len(days) {
			return nil, fmt.Errorf("generation: classified %d days, expected %d", yearly.TotalDays(), len(days))
		}
		dataset.Meters = append(dataset.Meters, MeterDataset{
			Identity:  identity,
			StartDate: start,
			EndDate:   end,
			Yearly:    yearly,
			Actual:    actual,
			Estimated: estimated,
			Missing:   missing,
		})
	}
	return dataset, nil
}

func meterIDs(cfg Configuration, src random.Source) ([]uuid.UUID, error) {
	if len(cfg.MeterIDs) > 0 {
		return append([]uuid.UUID(nil), cfg.MeterIDs...), nil
	}
	reader := random.NewReader(src)
	ids := make([]uuid.UUID, 0, cfg.MeterCount)
	for i := 0; i < cfg.MeterCount; i++ {
		id, err := uuid.NewRandomFromReader(reader)
		if err != nil {
			return nil, fmt.Errorf("generation: meter id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
