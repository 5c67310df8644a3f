package generation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmeter-synth/internal/generation/domain/random"
)

func fingerprint(d *Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "seed=%d det=%v\n", d.Seed, d.Deterministic)
	for _, m := range d.Meters {
		fmt.Fprintf(&b, "%s %s a=%d e=%d m=%d ai=%s\n", m.Identity.InternalID, m.Identity.Mpan,
			m.Yearly.DaysActual, m.Yearly.DaysEstimated, m.Yearly.DaysMissing, m.Yearly.AIYearlyValue)
		for _, list := range [][]DayMeasurement{m.Actual, m.Estimated, m.Missing} {
			for _, day := range list {
				fmt.Fprintf(&b, "%s %s %s:", day.Date.Format(DateLayout), day.QuantityID, day.Classification)
				for _, p := range day.Periods {
					fmt.Fprintf(&b, " %d=%s%s", p.Period, p.Quantity, p.Indicator)
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func generate(t *testing.T, cfg Configuration) *Dataset {
	t.Helper()
	seed, deterministic := ResolveSeed(cfg)
	src, err := random.NewSource(deterministic, seed)
	require.NoError(t, err)
	dataset, err := NewGenerator().Generate(cfg, src)
	require.NoError(t, err)
	return dataset
}

func TestGenerate_ExampleScenarioReproducible(t *testing.T) {
	seed := int64(42)
	cfg := baseConfig()
	cfg.Seed = &seed

	first := generate(t, cfg)
	second := generate(t, cfg)

	require.Len(t, first.Meters, 1)
	assert.Equal(t, int64(42), first.Seed)
	assert.True(t, first.Deterministic)
	assert.True(t, ValidateMpan(first.Meters[0].Identity.Mpan))
	assert.Equal(t, 3, first.Meters[0].Yearly.TotalDays())
	assert.Equal(t, fingerprint(first), fingerprint(second))
}

// Seed 42 must keep producing these values across releases; a change in draw
// order or in the PCG stream shows up here.
func TestGenerate_ExampleScenarioGolden(t *testing.T) {
	seed := int64(42)
	cfg := baseConfig()
	cfg.Seed = &seed

	dataset := generate(t, cfg)
	require.Len(t, dataset.Meters, 1)
	meter := dataset.Meters[0]
	assert.Equal(t, "00f1f514-15a4-487c-88a8-838b2879b539", meter.Identity.InternalID.String())
	assert.Equal(t, "6558499906695", meter.Identity.Mpan)
	assert.Equal(t, 0, dataset.Collisions)

	assert.Equal(t, 3, meter.Yearly.DaysActual)
	assert.Zero(t, meter.Yearly.DaysEstimated)
	assert.Zero(t, meter.Yearly.DaysMissing)
	require.NotNil(t, meter.Yearly.AIYearlyValue)
	assert.True(t, decimal.RequireFromString("381.945").Equal(*meter.Yearly.AIYearlyValue), meter.Yearly.AIYearlyValue.String())

	want := []struct {
		date  string
		first []string
		p18   string
		total string
	}{
		{"2024-01-01", []string{"0.998", "0.863", "0.897"}, "4.876", "129.302"},
		{"2024-01-02", []string{"0.887", "0.92", "0.931"}, "4.556", "126.529"},
		{"2024-01-03", []string{"1.052", "0.989", "0.898"}, "4.583", "126.114"},
	}
	require.Len(t, meter.Actual, len(want))
	for i, w := range want {
		day := meter.Actual[i]
		assert.Equal(t, w.date, day.Date.Format(DateLayout))
		require.Len(t, day.Periods, 48)
		for j, q := range w.first {
			assert.True(t, decimal.RequireFromString(q).Equal(day.Periods[j].Quantity), "%s period %d: %s", w.date, j+1, day.Periods[j].Quantity)
		}
		assert.True(t, decimal.RequireFromString(w.p18).Equal(day.Periods[17].Quantity), "%s period 18: %s", w.date, day.Periods[17].Quantity)
		assert.True(t, decimal.RequireFromString(w.total).Equal(day.Total()), "%s total: %s", w.date, day.Total())
	}
}

func TestGenerate_DerivedSeedReproducible(t *testing.T) {
	cfg := baseConfig()
	cfg.MeterCount = 3
	cfg.EndDate = cfg.StartDate.AddDate(0, 1, 0)

	first := generate(t, cfg)
	second := generate(t, cfg)
	assert.Equal(t, DeriveSeed(cfg), first.Seed)
	assert.Equal(t, fingerprint(first), fingerprint(second))
}

func TestGenerate_DifferentSeedsDiffer(t *testing.T) {
	a, b := int64(1), int64(2)
	cfgA := baseConfig()
	cfgA.Seed = &a
	cfgB := baseConfig()
	cfgB.Seed = &b
	assert.NotEqual(t, fingerprint(generate(t, cfgA)), fingerprint(generate(t, cfgB)))
}

func TestGenerate_PeriodsNumberedInOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.MeterCount = 2
	cfg.EndDate = cfg.StartDate.AddDate(0, 0, 13)
	dataset := generate(t, cfg)

	for _, m := range dataset.Meters {
		for _, list := range [][]DayMeasurement{m.Actual, m.Estimated} {
			for _, day := range list {
				require.Len(t, day.Periods, 48)
				for i, p := range day.Periods {
					assert.Equal(t, i+1, p.Period)
					assert.False(t, p.Quantity.IsNegative())
					assert.Equal(t, day.Classification.Indicator(), p.Indicator)
				}
				assert.Equal(t, QuantityImportActive, day.QuantityID)
			}
		}
		for _, day := range m.Missing {
			assert.Empty(t, day.Periods)
		}
	}
}

func TestGenerate_ClassificationCompleteness(t *testing.T) {
	cfg := baseConfig()
	cfg.MeterCount = 4
	cfg.StartDate = time.Date(2023, time.February, 20, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	cfg.EstimatedRate = 0.2
	cfg.MissingRate = 0.1
	dataset := generate(t, cfg)

	want := cfg.DayCount()
	assert.Equal(t, 385, want)
	for _, m := range dataset.Meters {
		y := m.Yearly
		assert.Equal(t, want, y.DaysActual+y.DaysEstimated+y.DaysMissing)
		assert.Len(t, m.Actual, y.DaysActual)
		assert.Len(t, m.Estimated, y.DaysEstimated)
		assert.Len(t, m.Missing, y.DaysMissing)
		assert.Greater(t, y.DaysEstimated, 0)
		assert.Greater(t, y.DaysMissing, 0)
	}
}

func TestGenerate_YearlyTotals(t *testing.T) {
	cfg := baseConfig()
	cfg.EndDate = cfg.StartDate.AddDate(0, 2, 0)
	cfg.EstimatedRate = 0.25
	cfg.MissingRate = 0.05
	dataset := generate(t, cfg)

	m := dataset.Meters[0]
	actual := decimal.Zero
	for _, day := range m.Actual {
		actual = actual.Add(day.Total())
	}
	estimated := decimal.Zero
	for _, day := range m.Estimated {
		estimated = estimated.Add(day.Total())
	}
	assert.True(t, actual.Equal(m.Yearly.ActualTotal))
	assert.True(t, estimated.Equal(m.Yearly.EstimatedTotal))
	require.NotNil(t, m.Yearly.AIYearlyValue)
	assert.True(t, actual.Add(estimated).Equal(*m.Yearly.AIYearlyValue))
	assert.Nil(t, m.Yearly.AEYearlyValue)
	assert.Nil(t, m.Yearly.RIYearlyValue)
	assert.Nil(t, m.Yearly.REYearlyValue)
}

func TestGenerate_AllEstimated(t *testing.T) {
	cfg := baseConfig()
	cfg.EstimatedRate = 1
	cfg.MissingRate = 0
	dataset := generate(t, cfg)

	m := dataset.Meters[0]
	assert.Equal(t, 3, m.Yearly.DaysEstimated)
	assert.Empty(t, m.Actual)
	for _, day := range m.Estimated {
		for _, p := range day.Periods {
			assert.Equal(t, "E", p.Indicator)
		}
	}
}

func TestGenerate_ExplicitMeterIDs(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("6f1c8a52-3c0e-4b8e-9a51-0d6b1f2e7c11"),
		uuid.MustParse("0b7e4d19-92aa-4f0c-8d3e-5a6c7b8d9e01"),
	}
	cfg := baseConfig()
	cfg.MeterCount = 0
	cfg.MeterIDs = ids
	dataset := generate(t, cfg)

	require.Len(t, dataset.Meters, 2)
	assert.Equal(t, ids[0], dataset.Meters[0].Identity.InternalID)
	assert.Equal(t, ids[1], dataset.Meters[1].Identity.InternalID)
	assert.NotEqual(t, dataset.Meters[0].Identity.Mpan, dataset.Meters[1].Identity.Mpan)
}

func TestGenerate_MetersAreDistinguishable(t *testing.T) {
	cfg := baseConfig()
	cfg.MeterCount = 2
	cfg.EstimatedRate = 0
	cfg.MissingRate = 0
	dataset := generate(t, cfg)

	a := dataset.Meters[0].Actual[0].Periods
	b := dataset.Meters[1].Actual[0].Periods
	differing := 0
	for i := range a {
		if !a[i].Quantity.Equal(b[i].Quantity) {
			differing++
		}
	}
	assert.Greater(t, differing, 40)
}

func TestGenerate_ManyMetersUniqueMpans(t *testing.T) {
	cfg := baseConfig()
	cfg.MeterCount = 250
	cfg.EndDate = cfg.StartDate
	dataset := generate(t, cfg)

	seen := make(map[string]struct{})
	for _, m := range dataset.Meters {
		require.True(t, ValidateMpan(m.Identity.Mpan))
		_, dup := seen[m.Identity.Mpan]
		require.False(t, dup)
		seen[m.Identity.Mpan] = struct{}{}
	}
}

func TestGenerate_NonDeterministic(t *testing.T) {
	cfg := baseConfig()
	cfg.Deterministic = false
	dataset := generate(t, cfg)
	assert.False(t, dataset.Deterministic)
	assert.Equal(t, int64(0), dataset.Seed)
	assert.Len(t, dataset.Meters, 1)
}

func TestGenerate_InvalidConfiguration(t *testing.T) {
	cases := map[string]func(*Configuration){
		"start after end":   func(c *Configuration) { c.StartDate = c.EndDate.AddDate(0, 0, 1) },
		"zero period":       func(c *Configuration) { c.Period = 0 },
		"uneven period":     func(c *Configuration) { c.Period = 7 },
		"no meters":         func(c *Configuration) { c.MeterCount = 0 },
		"negative meters":   func(c *Configuration) { c.MeterCount = -1 },
		"missing class":     func(c *Configuration) { c.MeasurementClass = " " },
		"rates above one":   func(c *Configuration) { c.EstimatedRate, c.MissingRate = 0.6, 0.6 },
		"negative rate":     func(c *Configuration) { c.MissingRate = -0.1 },
		"missing end date":  func(c *Configuration) { c.EndDate = time.Time{} },
	}
	for name, mutate := range cases {
		cfg := baseConfig()
		mutate(&cfg)
		_, err := NewGenerator().Generate(cfg, random.NewDeterministic(1))
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
	}

	_, err := NewGenerator().Generate(baseConfig(), nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestGenerate_SingleDayRange(t *testing.T) {
	cfg := baseConfig()
	cfg.EndDate = cfg.StartDate
	cfg.Period = 60
	dataset := generate(t, cfg)
	m := dataset.Meters[0]
	assert.Equal(t, 1, m.Yearly.TotalDays())
	for _, day := range append(m.Actual, m.Estimated...) {
		assert.Len(t, day.Periods, 24)
	}
}
