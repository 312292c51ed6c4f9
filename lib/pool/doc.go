// Package pool provides a bounded pool of reusable resources.
//
// The pool supports:
//   - A fixed maximum size set at construction
//   - Lazy creation of resources, never more than the maximum
//   - First-fit reuse: the earliest-created idle resource is handed out first
//   - Fail-fast acquisition with ErrPoolExhausted, or blocking acquisition
//     bounded by a context
//   - Ownership checks on release
//   - Metrics for pool utilization
//
// # Basic Usage
//
//	p, err := pool.New(3)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	r, err := p.Acquire()
//	if errors.Is(err, pool.ErrPoolExhausted) {
//	    // back off and retry, or report the service as busy
//	}
//	defer p.Release(r)
//
// # Waiting for Capacity
//
// AcquireWait blocks until a resource is released, the context is done, or
// the pool is closed:
//
//	ctx, cancel := context.WithTimeout(ctx, time.Second)
//	defer cancel()
//	r, err := p.AcquireWait(ctx)
//
// # Release Checks
//
// Releasing nil or a resource from another pool returns ErrInvalidRelease.
// Releasing an idle resource is a no-op by default; set
// Config.StrictRelease to get ErrDoubleRelease instead.
//
// # Metrics
//
// Pool utilization metrics are registered with the metrics package:
//   - respool_pool_resources_max: Maximum pool size
//   - respool_pool_resources_created: Resources created so far
//   - respool_pool_resources_idle: Current idle resources
//   - respool_pool_resources_in_use: Resources currently in use
//   - respool_pool_resources_created_total: Resources created (counter)
//   - respool_pool_acquire_total: Total acquire attempts
//   - respool_pool_acquire_success_total: Successful acquires
//   - respool_pool_acquire_exhausted_total: Acquires rejected at capacity
//   - respool_pool_acquire_failed_total: Acquires failed otherwise
//   - respool_pool_acquire_waits_total: Blocking acquires that had to wait
//   - respool_pool_release_total: Total releases
//   - respool_pool_invalid_release_total: Rejected releases
//   - respool_pool_acquire_duration_seconds: Time spent in AcquireWait
package pool
