package loadgen

import "github.com/go-i2p/respool/lib/metrics"

// Load generator metrics
var (
	// RunsTotal counts completed runs.
	RunsTotal = metrics.NewCounter(
		"respool_loadgen_runs_total",
		"Total number of load generation runs",
	)
	// CyclesTotal counts completed acquire/hold/release cycles.
	CyclesTotal = metrics.NewCounter(
		"respool_loadgen_cycles_total",
		"Total number of completed acquire/release cycles",
	)
	// RetriesTotal counts retried acquires.
	RetriesTotal = metrics.NewCounter(
		"respool_loadgen_retries_total",
		"Total number of acquires retried after pool exhaustion",
	)
	// GaveUpTotal counts cycles skipped after running out of retries.
	GaveUpTotal = metrics.NewCounter(
		"respool_loadgen_gave_up_total",
		"Total number of cycles abandoned after max retries",
	)
	// PeakConcurrent is the highest concurrency seen by the last run.
	PeakConcurrent = metrics.NewGauge(
		"respool_loadgen_peak_concurrent",
		"Highest number of resources held at once in the last run",
	)
)

func recordMetrics(r Report) {
	RunsTotal.Inc()
	CyclesTotal.Add(r.Successes)
	RetriesTotal.Add(r.Retries)
	GaveUpTotal.Add(r.GaveUp)
	PeakConcurrent.Set(r.MaxConcurrent)
}
