package application

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	generation "smartmeter-synth/internal/generation/domain"
)

// GenerateRequest is the transport-neutral shape of a generation request.
// Absent fields fall back to the service defaults.
type GenerateRequest struct {
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	Period           *int     `json:"period"`
	BusinessType     string   `json:"business_type"`
	MeasurementClass string   `json:"measurement_class"`
	MeterCount       *int     `json:"meter_count"`
	MeterIDs         []string `json:"meter_ids"`
	SiteName         *string  `json:"site_name"`
	Deterministic    *bool    `json:"deterministic"`
	Seed             *int64   `json:"seed"`
	EstimatedRate    *float64 `json:"estimated_rate"`
	MissingRate      *float64 `json:"missing_rate"`
}

// Apply overlays the request on defaults and validates the result.
func (r GenerateRequest) Apply(defaults generation.Configuration) (generation.Configuration, error) {
	cfg := defaults
	cfg.MeterIDs = append([]uuid.UUID(nil), defaults.MeterIDs...)
	if defaults.Seed != nil {
		seed := *defaults.Seed
		cfg.Seed = &seed
	}

	if r.StartDate != "" {
		parsed, err := generation.ParseDate(r.StartDate)
		if err != nil {
			return generation.Configuration{}, err
		}
		cfg.StartDate = parsed
	}
	if r.EndDate != "" {
		parsed, err := generation.ParseDate(r.EndDate)
		if err != nil {
			return generation.Configuration{}, err
		}
		cfg.EndDate = parsed
	}
	if r.Period != nil {
		cfg.Period = *r.Period
	}
	if strings.TrimSpace(r.BusinessType) != "" {
		cfg.BusinessType = generation.BusinessType(strings.TrimSpace(r.BusinessType))
	}
	if strings.TrimSpace(r.MeasurementClass) != "" {
		cfg.MeasurementClass = strings.TrimSpace(r.MeasurementClass)
	}
	if r.MeterCount != nil {
		cfg.MeterCount = *r.MeterCount
	}
	if len(r.MeterIDs) > 0 {
		ids := make([]uuid.UUID, 0, len(r.MeterIDs))
		for _, raw := range r.MeterIDs {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return generation.Configuration{}, fmt.Errorf("%w: meter id %q", generation.ErrInvalidArgument, raw)
			}
			ids = append(ids, id)
		}
		cfg.MeterIDs = ids
	}
	if r.SiteName != nil {
		cfg.SiteName = *r.SiteName
	}
	if r.Deterministic != nil {
		cfg.Deterministic = *r.Deterministic
	}
	if r.Seed != nil {
		seed := *r.Seed
		cfg.Seed = &seed
	} else if r.Deterministic != nil && !*r.Deterministic {
		cfg.Seed = nil
	}
	if r.EstimatedRate != nil {
		cfg.EstimatedRate = *r.EstimatedRate
	}
	if r.MissingRate != nil {
		cfg.MissingRate = *r.MissingRate
	}

	cfg.BusinessType = generation.NormalizeBusinessType(string(cfg.BusinessType))
	if err := cfg.Validate(); err != nil {
		return generation.Configuration{}, err
	}
	return cfg, nil
}
