package events

import (
	"time"

	generation "smartmeter-synth/internal/generation/domain"
)

// DatasetGenerated is emitted once a generation run has completed.
type DatasetGenerated struct {
	RunID         string
	Seed          int64
	Deterministic bool
	BusinessType  generation.BusinessType
	SiteName      string
	StartDate     time.Time
	EndDate       time.Time
	PeriodMinutes int
	Meters        int
	DaysActual    int
	DaysEstimated int
	DaysMissing   int
	Collisions    int
	Duration      time.Duration
	OccurredAt    time.Time
}
