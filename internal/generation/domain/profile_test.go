package generation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmeter-synth/internal/generation/domain/random"
)

func TestPeriodShare_SumsToOne(t *testing.T) {
	engine := NewProfileEngine()
	for _, bt := range KnownBusinessTypes() {
		for _, periods := range []int{24, 48, 96, 144} {
			var sum float64
			for p := 1; p <= periods; p++ {
				share := engine.PeriodShare(bt, p, periods)
				assert.Greater(t, share, 0.0)
				sum += share
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "%s/%d", bt, periods)
		}
	}
}

func TestPeriodShare_DoublingPeriodsHalvesShare(t *testing.T) {
	engine := NewProfileEngine()
	for _, bt := range KnownBusinessTypes() {
		for p := 1; p <= 48; p++ {
			coarse := engine.PeriodShare(bt, p, 48)
			fine := engine.PeriodShare(bt, 2*p-1, 96) + engine.PeriodShare(bt, 2*p, 96)
			assert.InDelta(t, coarse, fine, 1e-12, "%s period %d", bt, p)
		}
	}
}

func TestPeriodShare_OutOfRange(t *testing.T) {
	engine := NewProfileEngine()
	assert.Equal(t, 0.0, engine.PeriodShare(BusinessOffice, 0, 48))
	assert.Equal(t, 0.0, engine.PeriodShare(BusinessOffice, 49, 48))
	assert.Equal(t, 0.0, engine.PeriodShare(BusinessOffice, 1, 0))
}

func TestOfficeProfile_ConcentratesInWorkingHours(t *testing.T) {
	engine := NewProfileEngine()
	working := engine.PeriodShare(BusinessOffice, 21, 48) // 10:00-10:30
	night := engine.PeriodShare(BusinessOffice, 5, 48)    // 02:00-02:30
	assert.Greater(t, working, 3*night)

	residentialEvening := engine.PeriodShare(BusinessResidential, 38, 48) // 18:30-19:00
	residentialMidday := engine.PeriodShare(BusinessResidential, 23, 48)  // 11:00-11:30
	assert.Greater(t, residentialEvening, residentialMidday)
}

func TestDailyTotal_WeekendAndSeason(t *testing.T) {
	engine := NewProfileEngine()
	monday := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC)
	assert.Less(t, engine.DailyTotal(BusinessOffice, saturday), engine.DailyTotal(BusinessOffice, monday))
	assert.Greater(t, engine.DailyTotal(BusinessRetail, saturday), engine.DailyTotal(BusinessRetail, monday))

	julyMonday := time.Date(2024, time.July, 8, 0, 0, 0, 0, time.UTC)
	assert.Greater(t, engine.DailyTotal(BusinessResidential, monday), engine.DailyTotal(BusinessResidential, julyMonday))
}

func TestNormalizeBusinessType(t *testing.T) {
	assert.Equal(t, BusinessOffice, NormalizeBusinessType("office"))
	assert.Equal(t, BusinessIndustrial, NormalizeBusinessType(" INDUSTRIAL "))
	assert.Equal(t, BusinessOther, NormalizeBusinessType("Warehouse"))
	assert.Equal(t, BusinessOther, NormalizeBusinessType(""))
}

func TestDayQuantities_NonNegativeAndReproducible(t *testing.T) {
	engine := NewProfileEngine()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	a, err := engine.DayQuantities(BusinessOffice, day, 48, 1, random.NewDeterministic(42))
	require.NoError(t, err)
	b, err := engine.DayQuantities(BusinessOffice, day, 48, 1, random.NewDeterministic(42))
	require.NoError(t, err)
	require.Len(t, a, 48)

	for i := range a {
		assert.True(t, a[i].Equal(b[i]), "period %d", i+1)
		assert.False(t, a[i].IsNegative())
		assert.LessOrEqual(t, a[i].Exponent(), int32(0))
		assert.GreaterOrEqual(t, a[i].Exponent(), int32(-quantityPlaces))
	}
}

func TestDayQuantities_TotalTracksProfile(t *testing.T) {
	engine := NewProfileEngine()
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	expected := engine.DailyTotal(BusinessIndustrial, day)

	for _, periods := range []int{48, 96} {
		values, err := engine.DayQuantities(BusinessIndustrial, day, periods, 1, random.NewDeterministic(3))
		require.NoError(t, err)
		total := decimal.Zero
		for _, v := range values {
			total = total.Add(v)
		}
		got, _ := total.Float64()
		assert.InEpsilon(t, expected, got, periodJitter, "periods=%d", periods)
	}
}

func TestPeriodQuantity(t *testing.T) {
	engine := NewProfileEngine()
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	q, err := engine.PeriodQuantity(BusinessOffice, day, 20, 48, random.NewDeterministic(9))
	require.NoError(t, err)
	assert.True(t, q.IsPositive())

	_, err = engine.PeriodQuantity(BusinessOffice, day, 49, 48, random.NewDeterministic(9))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = engine.PeriodQuantity(BusinessOffice, day, 1, 48, nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestMeterScale_Bounded(t *testing.T) {
	engine := NewProfileEngine()
	src := random.NewDeterministic(1)
	for i := 0; i < 1000; i++ {
		scale := engine.MeterScale(src)
		assert.GreaterOrEqual(t, scale, 1-meterScaleSpread)
		assert.Less(t, scale, 1+meterScaleSpread)
	}
}

func TestJittered_ClampsNegative(t *testing.T) {
	got := jittered(-5, random.NewDeterministic(1))
	assert.True(t, got.IsZero())
}
