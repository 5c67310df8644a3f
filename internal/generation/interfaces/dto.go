package interfaces

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	generation "smartmeter-synth/internal/generation/domain"
)

// MeterRecord is one meter in the external settlement schema.
type MeterRecord struct {
	Mpan                  string              `json:"mpan"`
	StartDate             string              `json:"start_date"`
	EndDate               string              `json:"end_date"`
	DaysActual            int                 `json:"days_actual"`
	DaysEstimated         int                 `json:"days_estimated"`
	DaysMissing           int                 `json:"days_missing"`
	AIYearlyValue         *json.Number        `json:"ai_yearly_value"`
	AEYearlyValue         *json.Number        `json:"ae_yearly_value"`
	RIYearlyValue         *json.Number        `json:"ri_yearly_value"`
	REYearlyValue         *json.Number        `json:"re_yearly_value"`
	ActualMeasurements    []MeasurementRecord `json:"actual_measurements"`
	EstimatedMeasurements []MeasurementRecord `json:"estimated_measurements"`
	MissingMeasurements   []MeasurementRecord `json:"missing_measurement"`
}

// MeasurementRecord is one meter-day.
type MeasurementRecord struct {
	Date    string         `json:"date"`
	QtyID   string         `json:"qty_id"`
	Periods []PeriodRecord `json:"periods"`
}

// PeriodRecord is one period of a meter-day.
type PeriodRecord struct {
	Period int         `json:"period"`
	HHC    json.Number `json:"hhc"`
	AEI    string      `json:"aei"`
}

// ToMeterRecords maps a dataset onto the external schema.
func ToMeterRecords(dataset *generation.Dataset) []MeterRecord {
	if dataset == nil {
		return []MeterRecord{}
	}
	records := make([]MeterRecord, 0, len(dataset.Meters))
	for _, meter := range dataset.Meters {
		records = append(records, ToMeterRecord(meter))
	}
	return records
}

// ToMeterRecord maps a single meter dataset.
func ToMeterRecord(meter generation.MeterDataset) MeterRecord {
	return MeterRecord{
		Mpan:                  meter.Identity.Mpan,
		StartDate:             meter.StartDate.Format(generation.DateLayout),
		EndDate:               meter.EndDate.Format(generation.DateLayout),
		DaysActual:            meter.Yearly.DaysActual,
		DaysEstimated:         meter.Yearly.DaysEstimated,
		DaysMissing:           meter.Yearly.DaysMissing,
		AIYearlyValue:         optionalNumber(meter.Yearly.AIYearlyValue),
		AEYearlyValue:         optionalNumber(meter.Yearly.AEYearlyValue),
		RIYearlyValue:         optionalNumber(meter.Yearly.RIYearlyValue),
		REYearlyValue:         optionalNumber(meter.Yearly.REYearlyValue),
		ActualMeasurements:    toMeasurements(meter.Actual),
		EstimatedMeasurements: toMeasurements(meter.Estimated),
		MissingMeasurements:   toMeasurements(meter.Missing),
	}
}

func toMeasurements(days []generation.DayMeasurement) []MeasurementRecord {
	out := make([]MeasurementRecord, 0, len(days))
	for _, day := range days {
		periods := make([]PeriodRecord, 0, len(day.Periods))
		for _, p := range day.Periods {
			periods = append(periods, PeriodRecord{
				Period: p.Period,
				HHC:    number(p.Quantity),
				AEI:    p.Indicator,
			})
		}
		out = append(out, MeasurementRecord{
			Date:    day.Date.Format(generation.DateLayout),
			QtyID:   day.QuantityID,
			Periods: periods,
		})
	}
	return out
}

func number(value decimal.Decimal) json.Number {
	return json.Number(value.String())
}

func optionalNumber(value *decimal.Decimal) *json.Number {
	if value == nil {
		return nil
	}
	n := number(*value)
	return &n
}

// FormatSeed renders a seed for headers and logs.
func FormatSeed(seed int64) string {
	return strconv.FormatInt(seed, 10)
}
