package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	minutesPerDay = 24 * 60

	// DefaultEstimatedRate is the default share of estimated days.
	DefaultEstimatedRate = 0.03
	// DefaultMissingRate is the default share of missing days.
	DefaultMissingRate = 0.01
)

// DateLayout is the calendar date layout used across the external schema.
const DateLayout = "2006-01-02"

// Configuration describes one generation request. It is read-only to the engine.
type Configuration struct {
	StartDate        time.Time
	EndDate          time.Time
	Period           int
	BusinessType     BusinessType
	MeasurementClass string
	MeterCount       int
	MeterIDs         []uuid.UUID
	SiteName         string
	Deterministic    bool
	Seed             *int64

	EstimatedRate float64
	MissingRate   float64
}

// Validate checks configuration invariants.
func (c Configuration) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidArgument)
	}
	if DateOf(c.StartDate).After(DateOf(c.EndDate)) {
		return fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidArgument,
			c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout))
	}
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidArgument, c.Period)
	}
	if minutesPerDay%c.Period != 0 {
		return fmt.Errorf("%w: period %d does not divide a day", ErrInvalidArgument, c.Period)
	}
	if len(c.MeterIDs) == 0 && c.MeterCount <= 0 {
		return fmt.Errorf("%w: meter_count must be positive when no meter ids are given", ErrInvalidArgument)
	}
	if strings.TrimSpace(c.MeasurementClass) == "" {
		return fmt.Errorf("%w: measurement_class is required", ErrInvalidArgument)
	}
	if c.EstimatedRate < 0 || c.EstimatedRate > 1 || c.MissingRate < 0 || c.MissingRate > 1 {
		return fmt.Errorf("%w: classification rates must be within [0,1]", ErrInvalidArgument)
	}
	if c.EstimatedRate+c.MissingRate > 1 {
		return fmt.Errorf("%w: estimated_rate + missing_rate exceeds 1", ErrInvalidArgument)
	}
	return nil
}

// PeriodsPerDay returns how many periods make up one day.
func (c Configuration) PeriodsPerDay() int {
	if c.Period <= 0 {
		return 0
	}
	return minutesPerDay / c.Period
}

// EffectiveMeterCount is the number of meters the run will produce.
func (c Configuration) EffectiveMeterCount() int {
	if len(c.MeterIDs) > 0 {
		return len(c.MeterIDs)
	}
	return c.MeterCount
}

// Days returns every calendar day in the inclusive range.
func (c Configuration) Days() []time.Time {
	start := DateOf(c.StartDate)
	end := DateOf(c.EndDate)
	if start.After(end) {
		return nil
	}
	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// DayCount returns the number of calendar days in the inclusive range.
func (c Configuration) DayCount() int {
	start := DateOf(c.StartDate)
	end := DateOf(c.EndDate)
	if start.After(end) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, value)
	}
	return parsed, nil
}
