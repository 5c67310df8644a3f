package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInit_RegistersAndRecords(t *testing.T) {
	Init()
	Init()

	ObserveGeneration(ResultSuccess, 20*time.Millisecond)
	ObserveGeneration("", time.Millisecond)
	ObserveDataset(2, 5, 1, 0, 1)
	ObserveExport("csv", ResultSuccess, time.Millisecond)
	ObserveExport("", "", time.Millisecond)
	IncAuditError()
	IncAuthDenied("forbidden")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := make(map[string]bool)
	for _, family := range families {
		found[family.GetName()] = true
	}
	for _, name := range []string{
		"synth_generation_runs_total",
		"synth_generation_latency_seconds",
		"synth_generated_meters_total",
		"synth_generated_days_total",
		"synth_mpan_collisions_total",
		"synth_export_total",
		"synth_export_latency_seconds",
		"synth_audit_errors_total",
		"synth_auth_denied_total",
	} {
		if !found[name] {
			t.Fatalf("metric %s not registered", name)
		}
	}
}
