package pool

import "github.com/go-i2p/respool/lib/metrics"

// Pool utilization metrics
var (
	// PoolResourcesMax is the maximum pool size.
	PoolResourcesMax = metrics.NewGauge(
		"respool_pool_resources_max",
		"Maximum number of resources in the pool",
	)
	// PoolResourcesCreated is the number of resources created so far.
	PoolResourcesCreated = metrics.NewGauge(
		"respool_pool_resources_created",
		"Current number of resources created by the pool",
	)
	// PoolResourcesIdle is the current number of idle resources.
	PoolResourcesIdle = metrics.NewGauge(
		"respool_pool_resources_idle",
		"Current number of idle resources in the pool",
	)
	// PoolResourcesInUse is the number of resources currently in use.
	PoolResourcesInUse = metrics.NewGauge(
		"respool_pool_resources_in_use",
		"Number of resources currently held by callers",
	)
	// PoolResourcesCreatedTotal counts resource creations.
	PoolResourcesCreatedTotal = metrics.NewCounter(
		"respool_pool_resources_created_total",
		"Total number of resources created",
	)
	// PoolAcquireTotal is the total number of acquire attempts.
	PoolAcquireTotal = metrics.NewCounter(
		"respool_pool_acquire_total",
		"Total number of resource acquire attempts",
	)
	// PoolAcquireSuccessTotal is the number of successful acquires.
	PoolAcquireSuccessTotal = metrics.NewCounter(
		"respool_pool_acquire_success_total",
		"Total number of successful resource acquires",
	)
	// PoolAcquireExhaustedTotal is the number of acquires rejected at capacity.
	PoolAcquireExhaustedTotal = metrics.NewCounter(
		"respool_pool_acquire_exhausted_total",
		"Total number of acquires rejected because the pool was exhausted",
	)
	// PoolAcquireFailedTotal is the number of acquires that failed otherwise.
	PoolAcquireFailedTotal = metrics.NewCounter(
		"respool_pool_acquire_failed_total",
		"Total number of acquires failed by close, timeout or cancellation",
	)
	// PoolAcquireWaitsTotal is the number of acquires that had to wait.
	PoolAcquireWaitsTotal = metrics.NewCounter(
		"respool_pool_acquire_waits_total",
		"Total number of blocking acquires that waited for a release",
	)
	// PoolReleaseTotal is the number of releases.
	PoolReleaseTotal = metrics.NewCounter(
		"respool_pool_release_total",
		"Total number of resource releases",
	)
	// PoolInvalidReleaseTotal is the number of rejected releases.
	PoolInvalidReleaseTotal = metrics.NewCounter(
		"respool_pool_invalid_release_total",
		"Total number of releases rejected by the pool",
	)
	// PoolAcquireLatency tracks time spent in blocking acquires.
	PoolAcquireLatency = metrics.NewHistogram(
		"respool_pool_acquire_duration_seconds",
		"Time spent acquiring a resource with AcquireWait",
		metrics.DefaultLatencyBuckets,
	)
)

// UpdateMetrics updates the pool gauges from Stats.
func UpdateMetrics(stats Stats) {
	PoolResourcesMax.Set(int64(stats.MaxSize))
	PoolResourcesCreated.Set(int64(stats.NumCreated))
	PoolResourcesIdle.Set(int64(stats.NumIdle))
	PoolResourcesInUse.Set(int64(stats.NumInUse))
}
