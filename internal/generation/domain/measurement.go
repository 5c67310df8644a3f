package generation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classification is the status assigned to one meter-day.
type Classification string

const (
	ClassificationActual    Classification = "actual"
	ClassificationEstimated Classification = "estimated"
	ClassificationMissing   Classification = "missing"
)

// Indicator returns the per-period actual/estimated indicator.
func (c Classification) Indicator() string {
	switch c {
	case ClassificationActual:
		return "A"
	case ClassificationEstimated:
		return "E"
	default:
		return ""
	}
}

// QuantityImportActive is the quantity id for active import energy.
const QuantityImportActive = "AI"

// MeterIdentity pairs a meter's internal id with its external MPAN.
type MeterIdentity struct {
	InternalID uuid.UUID
	Mpan       string
}

// PeriodMeasurement is one period's quantity within a day. Period is 1-based.
type PeriodMeasurement struct {
	Period    int
	Quantity  decimal.Decimal
	Indicator string
}

// DayMeasurement holds a meter-day's ordered periods.
type DayMeasurement struct {
	Date           time.Time
	QuantityID     string
	Classification Classification
	Periods        []PeriodMeasurement
}

// Total sums the day's period quantities.
func (d DayMeasurement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Periods {
		total = total.Add(p.Quantity)
	}
	return total
}

// YearlyAggregate is the per-meter rollup over the requested range.
// Only AIYearlyValue is populated; the export and reactive values stay nil.
type YearlyAggregate struct {
	DaysActual    int
	DaysEstimated int
	DaysMissing   int

	ActualTotal    decimal.Decimal
	EstimatedTotal decimal.Decimal

	AIYearlyValue *decimal.Decimal
	AEYearlyValue *decimal.Decimal
	RIYearlyValue *decimal.Decimal
	REYearlyValue *decimal.Decimal
}

// TotalDays returns the number of classified days.
func (a YearlyAggregate) TotalDays() int {
	return a.DaysActual + a.DaysEstimated + a.DaysMissing
}

// MeterDataset is everything produced for one meter.
type MeterDataset struct {
	Identity  MeterIdentity
	StartDate time.Time
	EndDate   time.Time
	Yearly    YearlyAggregate
	Actual    []DayMeasurement
	Estimated []DayMeasurement
	Missing   []DayMeasurement
}

// Dataset is the output of one generation run.
type Dataset struct {
	Seed          int64
	Deterministic bool
	BusinessType  BusinessType
	SiteName      string
	PeriodMinutes int
	Collisions    int
	Meters        []MeterDataset
}

// DayCounts totals classified days across all meters.
func (d *Dataset) DayCounts() (actual, estimated, missing int) {
	if d == nil {
		return 0, 0, 0
	}
	for _, m := range d.Meters {
		actual += m.Yearly.DaysActual
		estimated += m.Yearly.DaysEstimated
		missing += m.Yearly.DaysMissing
	}
	return actual, estimated, missing
}
