package generation

import "github.com/shopspring/decimal"

// YearlyAggregator folds classified days into a meter's yearly aggregate and
// its per-classification day lists.
type YearlyAggregator struct {
	aggregate YearlyAggregate
	actual    []DayMeasurement
	estimated []DayMeasurement
	missing   []DayMeasurement
}

// NewYearlyAggregator constructs an empty aggregator.
func NewYearlyAggregator() *YearlyAggregator {
	return &YearlyAggregator{
		aggregate: YearlyAggregate{
			ActualTotal:    decimal.Zero,
			EstimatedTotal: decimal.Zero,
		},
	}
}

// Add records one day. Days must be added in calendar order.
func (a *YearlyAggregator) Add(day DayMeasurement) {
	switch day.Classification {
	case ClassificationActual:
		a.aggregate.DaysActual++
		a.aggregate.ActualTotal = a.aggregate.ActualTotal.Add(day.Total())
		a.actual = append(a.actual, day)
	case ClassificationEstimated:
		a.aggregate.DaysEstimated++
		a.aggregate.EstimatedTotal = a.aggregate.EstimatedTotal.Add(day.Total())
		a.estimated = append(a.estimated, day)
	default:
		day.Classification = ClassificationMissing
		day.Periods = nil
		a.aggregate.DaysMissing++
		a.missing = append(a.missing, day)
	}
}

// Result returns the aggregate and the day lists.
func (a *YearlyAggregator) Result() (YearlyAggregate, []DayMeasurement, []DayMeasurement, []DayMeasurement) {
	agg := a.aggregate
	ai := agg.ActualTotal.Add(agg.EstimatedTotal)
	agg.AIYearlyValue = &ai
	return agg, a.actual, a.estimated, a.missing
}
