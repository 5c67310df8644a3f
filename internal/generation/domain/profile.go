package generation

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartmeter-synth/internal/generation/domain/random"
)

// BusinessType selects the consumption curve.
type BusinessType string

const (
	BusinessOffice      BusinessType = "Office"
	BusinessRetail      BusinessType = "Retail"
	BusinessIndustrial  BusinessType = "Industrial"
	BusinessResidential BusinessType = "Residential"
	BusinessOther       BusinessType = "Other"
)

const (
	quantityPlaces = 3

	// periodJitter bounds the per-period relative perturbation.
	periodJitter = 0.10
	// meterScaleSpread bounds the per-meter scale around 1.
	meterScaleSpread = 0.15

	// winterPeakDay is the day of year where seasonal demand peaks.
	winterPeakDay = 15
)

// Profile is the deterministic base curve for a business type.
type Profile struct {
	// Hourly holds the relative load for each hour [0-23].
	Hourly [24]float64
	// DailyKWh is the weekday baseline energy at the seasonal mean.
	DailyKWh float64
	// WeekendFactor scales Saturday and Sunday totals.
	WeekendFactor float64
	// SeasonalAmplitude is the winter/summer swing around the mean.
	SeasonalAmplitude float64
}

var profiles = map[BusinessType]Profile{
	BusinessOffice: {
		Hourly: [24]float64{
			0.20, 0.18, 0.18, 0.18, 0.18, 0.20, 0.35, 0.60,
			0.90, 1.00, 1.00, 1.00, 0.95, 1.00, 1.00, 0.95,
			0.85, 0.65, 0.45, 0.35, 0.28, 0.25, 0.22, 0.20,
		},
		DailyKWh:          120,
		WeekendFactor:     0.35,
		SeasonalAmplitude: 0.15,
	},
	BusinessRetail: {
		Hourly: [24]float64{
			0.15, 0.15, 0.15, 0.15, 0.15, 0.15, 0.20, 0.40,
			0.75, 0.95, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00,
			1.00, 0.95, 0.85, 0.70, 0.45, 0.25, 0.18, 0.15,
		},
		DailyKWh:          180,
		WeekendFactor:     1.10,
		SeasonalAmplitude: 0.10,
	},
	BusinessIndustrial: {
		Hourly: [24]float64{
			0.55, 0.55, 0.55, 0.55, 0.55, 0.60, 0.85, 1.00,
			1.00, 1.00, 1.00, 1.00, 0.95, 1.00, 1.00, 1.00,
			1.00, 0.95, 0.85, 0.75, 0.70, 0.65, 0.60, 0.55,
		},
		DailyKWh:          650,
		WeekendFactor:     0.60,
		SeasonalAmplitude: 0.05,
	},
	BusinessResidential: {
		Hourly: [24]float64{
			0.30, 0.25, 0.22, 0.20, 0.20, 0.25, 0.45, 0.75,
			0.70, 0.50, 0.45, 0.45, 0.50, 0.45, 0.45, 0.50,
			0.65, 0.90, 1.00, 0.95, 0.85, 0.70, 0.50, 0.38,
		},
		DailyKWh:          9,
		WeekendFactor:     1.15,
		SeasonalAmplitude: 0.30,
	},
	BusinessOther: {
		Hourly: [24]float64{
			0.40, 0.38, 0.36, 0.35, 0.35, 0.38, 0.50, 0.65,
			0.80, 0.90, 0.95, 1.00, 1.00, 1.00, 0.95, 0.90,
			0.85, 0.80, 0.75, 0.70, 0.60, 0.52, 0.46, 0.42,
		},
		DailyKWh:          60,
		WeekendFactor:     0.90,
		SeasonalAmplitude: 0.12,
	},
}

// KnownBusinessTypes lists the business types with a dedicated curve.
func KnownBusinessTypes() []BusinessType {
	return []BusinessType{BusinessOffice, BusinessRetail, BusinessIndustrial, BusinessResidential, BusinessOther}
}

// NormalizeBusinessType maps a tag onto a known type, case-insensitively.
// Unknown tags fall back to Other.
func NormalizeBusinessType(value string) BusinessType {
	trimmed := strings.TrimSpace(value)
	for _, known := range KnownBusinessTypes() {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	return BusinessOther
}

// ProfileFor returns the curve for a business type.
func ProfileFor(businessType BusinessType) Profile {
	if p, ok := profiles[NormalizeBusinessType(string(businessType))]; ok {
		return p
	}
	return profiles[BusinessOther]
}

// ProfileEngine synthesizes period quantities.
type ProfileEngine struct{}

// NewProfileEngine constructs a ProfileEngine.
func NewProfileEngine() *ProfileEngine { return &ProfileEngine{} }

// DailyTotal returns the expected energy for a day before jitter.
func (e *ProfileEngine) DailyTotal(businessType BusinessType, date time.Time) float64 {
	p := ProfileFor(businessType)
	total := p.DailyKWh * seasonalFactor(p, date)
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		total *= p.WeekendFactor
	}
	return total
}

// PeriodShare returns the fraction of the day's energy that falls into the
// 1-based period. Shares across a day sum to 1.
func (e *ProfileEngine) PeriodShare(businessType BusinessType, period, periodsPerDay int) float64 {
	if periodsPerDay <= 0 || period < 1 || period > periodsPerDay {
		return 0
	}
	weights := periodWeights(ProfileFor(businessType), periodsPerDay)
	return weights[period-1]
}

// PeriodQuantity returns one period's quantity with a single jitter draw.
func (e *ProfileEngine) PeriodQuantity(businessType BusinessType, date time.Time, period, periodsPerDay int, src random.Source) (decimal.Decimal, error) {
	if src == nil {
		return decimal.Zero, ErrNilSource
	}
	share := e.PeriodShare(businessType, period, periodsPerDay)
	if share == 0 {
		return decimal.Zero, ErrInvalidArgument
	}
	return jittered(e.DailyTotal(businessType, date)*share, src), nil
}

// DayQuantities returns all periods of a day in order, scaled by the meter's scale.
// It draws exactly periodsPerDay jitter values from src.
func (e *ProfileEngine) DayQuantities(businessType BusinessType, date time.Time, periodsPerDay int, scale float64, src random.Source) ([]decimal.Decimal, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if periodsPerDay <= 0 {
		return nil, ErrInvalidArgument
	}
	weights := periodWeights(ProfileFor(businessType), periodsPerDay)
	total := e.DailyTotal(businessType, date) * scale

	values := make([]decimal.Decimal, periodsPerDay)
	for i, w := range weights {
		values[i] = jittered(total*w, src)
	}
	return values, nil
}

// MeterScale draws the per-meter multiplier in [1-spread, 1+spread).
func (e *ProfileEngine) MeterScale(src random.Source) float64 {
	return 1 - meterScaleSpread + 2*meterScaleSpread*src.NextDouble()
}

func jittered(expected float64, src random.Source) decimal.Decimal {
	value := expected * (1 + periodJitter*(2*src.NextDouble()-1))
	if value < 0 || math.IsNaN(value) {
		value = 0
	}
	return decimal.NewFromFloat(value).Round(quantityPlaces)
}

func seasonalFactor(p Profile, date time.Time) float64 {
	angle := 2 * math.Pi * float64(date.YearDay()-winterPeakDay) / 365.25
	return 1 + p.SeasonalAmplitude*math.Cos(angle)
}

// periodWeights samples the hourly curve at each period mid-point and normalizes.
func periodWeights(p Profile, periodsPerDay int) []float64 {
	weights := make([]float64, periodsPerDay)
	periodHours := 24.0 / float64(periodsPerDay)
	var sum float64
	for i := range weights {
		mid := (float64(i) + 0.5) * periodHours
		weights[i] = sampleHourly(p.Hourly, mid)
		sum += weights[i]
	}
	if sum == 0 {
		for i := range weights {
			weights[i] = 1 / float64(periodsPerDay)
		}
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// sampleHourly interpolates linearly between hour centres, wrapping at midnight.
func sampleHourly(hourly [24]float64, hour float64) float64 {
	pos := hour - 0.5
	if pos < 0 {
		pos += 24
	}
	lo := int(math.Floor(pos)) % 24
	hi := (lo + 1) % 24
	frac := pos - math.Floor(pos)
	return hourly[lo]*(1-frac) + hourly[hi]*frac
}
