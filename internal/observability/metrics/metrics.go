package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "synth_"

	resultSuccess = "success"
	resultError   = "error"
	resultInvalid = "invalid"
)

var (
	registerOnce sync.Once

	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec

	generatedMeters prometheus.Counter
	generatedDays   *prometheus.CounterVec
	mpanCollisions  prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	auditErrors prometheus.Counter
	authDenied  *prometheus.CounterVec
)

// Init registers generation metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		generationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "generation_runs_total",
				Help: "Total generation runs by result",
			},
			[]string{"result"},
		)
		generationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "generation_latency_seconds",
				Help:    "Generation run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		generatedMeters = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "generated_meters_total",
				Help: "Total meters synthesized",
			},
		)
		generatedDays = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "generated_days_total",
				Help: "Total synthesized meter-days by classification",
			},
			[]string{"classification"},
		)
		mpanCollisions = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "mpan_collisions_total",
				Help: "Total MPAN candidates that needed perturbation",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total dataset exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Dataset export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		auditErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "audit_errors_total",
				Help: "Total audit entries that failed to persist",
			},
		)

		authDenied = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "auth_denied_total",
				Help: "Total API requests rejected by authentication or RBAC",
			},
			[]string{"reason"},
		)

		prometheus.MustRegister(
			generationTotal,
			generationLatency,
			generatedMeters,
			generatedDays,
			mpanCollisions,
			exportTotal,
			exportLatency,
			auditErrors,
			authDenied,
		)
	})
}

// ObserveGeneration records generation latency and result.
func ObserveGeneration(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if generationTotal != nil {
		generationTotal.WithLabelValues(result).Inc()
	}
	if generationLatency != nil {
		generationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveDataset records the size of a generated dataset.
func ObserveDataset(meters, actual, estimated, missing, collisions int) {
	if generatedMeters != nil && meters > 0 {
		generatedMeters.Add(float64(meters))
	}
	if generatedDays != nil {
		generatedDays.WithLabelValues("actual").Add(float64(actual))
		generatedDays.WithLabelValues("estimated").Add(float64(estimated))
		generatedDays.WithLabelValues("missing").Add(float64(missing))
	}
	if mpanCollisions != nil && collisions > 0 {
		mpanCollisions.Add(float64(collisions))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAuditError increments the audit failure counter.
func IncAuditError() {
	if auditErrors != nil {
		auditErrors.Inc()
	}
}

// IncAuthDenied increments the rejected request counter for reason.
func IncAuthDenied(reason string) {
	if authDenied != nil {
		authDenied.WithLabelValues(reason).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultInvalid = resultInvalid
)
