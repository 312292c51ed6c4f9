// Package loadgen drives a pool with concurrent simulated callers.
//
// Each worker repeatedly acquires a resource, holds it, and releases it.
// In fail-fast mode an exhausted acquire is retried with linear backoff; in
// wait mode the worker blocks in AcquireWait. Every checkout is recorded so
// that a resource handed to two workers at once fails the run.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/ratelimit"
	"github.com/go-i2p/respool/lib/resource"
)

// Acquirer is the subset of *pool.Pool the load generator needs.
type Acquirer interface {
	Acquire() (*resource.Resource, error)
	AcquireWait(ctx context.Context) (*resource.Resource, error)
	Release(r *resource.Resource) error
}

// Mode selects how workers acquire resources.
type Mode int

const (
	// FailFast uses Acquire and retries on exhaustion.
	FailFast Mode = iota
	// Wait uses AcquireWait.
	Wait
)

func (m Mode) String() string {
	switch m {
	case FailFast:
		return "fail-fast"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// ParseMode parses "fail-fast" or "wait".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fail-fast":
		return FailFast, nil
	case "wait":
		return Wait, nil
	}
	return 0, fmt.Errorf("loadgen: unknown mode %q: %w", s, apperrors.ErrInvalidInput)
}

// Config configures a load generation run.
type Config struct {
	// Workers is the number of concurrent callers.
	Workers int
	// OpsPerWorker is how many acquire/release cycles each worker performs.
	OpsPerWorker int
	// HoldTime is how long a worker keeps each resource.
	HoldTime time.Duration
	// Mode selects Acquire with retries or AcquireWait.
	Mode Mode
	// MaxRetries bounds retries of an exhausted acquire in FailFast mode.
	// A worker that runs out of retries skips the cycle.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// Limiter paces acquisitions across all workers. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:      8,
		OpsPerWorker: 50,
		HoldTime:     2 * time.Millisecond,
		Mode:         FailFast,
		MaxRetries:   20,
		RetryBackoff: time.Millisecond,
	}
}

// Report summarizes a run.
type Report struct {
	// Successes is the number of completed acquire/release cycles.
	Successes uint64
	// Exhausted is the number of acquires rejected with an exhausted pool.
	Exhausted uint64
	// Retries is the number of retried acquires.
	Retries uint64
	// GaveUp is the number of cycles skipped after MaxRetries.
	GaveUp uint64
	// MaxConcurrent is the highest number of resources held at once.
	MaxConcurrent int64
	// Duration is the wall time of the run.
	Duration time.Duration
	// ErrorCode is the lib/errors code of the error that stopped the run,
	// or 0 if every worker finished.
	ErrorCode int
}

// Throughput returns completed cycles per second.
func (r Report) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Successes) / r.Duration.Seconds()
}

// run holds the shared state of one Run call.
type run struct {
	p       Acquirer
	cfg     Config
	holders sync.Map // *resource.Resource -> worker id

	successes uint64
	exhausted uint64
	retries   uint64
	gaveUp    uint64
	inUse     int64
	peak      int64
}

// Run drives p with cfg.Workers concurrent callers and returns once every
// worker has finished, ctx is done, or a worker hits an unexpected error.
// A double checkout returns an error wrapping ErrDoubleCheckout.
func Run(ctx context.Context, p Acquirer, cfg Config) (Report, error) {
	if cfg.Workers < 1 || cfg.OpsPerWorker < 1 {
		return Report{}, fmt.Errorf("loadgen: workers and ops must be positive: %w", apperrors.ErrInvalidInput)
	}

	r := &run{p: p, cfg: cfg}
	start := time.Now()

	log.WithField("workers", cfg.Workers).
		WithField("ops", cfg.OpsPerWorker).
		WithField("mode", cfg.Mode.String()).
		Debug("load generation started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			return r.work(gctx, worker)
		})
	}
	err := g.Wait()

	report := Report{
		Successes:     atomic.LoadUint64(&r.successes),
		Exhausted:     atomic.LoadUint64(&r.exhausted),
		Retries:       atomic.LoadUint64(&r.retries),
		GaveUp:        atomic.LoadUint64(&r.gaveUp),
		MaxConcurrent: atomic.LoadInt64(&r.peak),
		Duration:      time.Since(start),
	}
	recordMetrics(report)

	if err != nil {
		report.ErrorCode = apperrors.Code(err)
		log.WithError(err).WithField("code", report.ErrorCode).Warn("load generation stopped")
		return report, err
	}
	log.WithField("successes", report.Successes).
		WithField("exhausted", report.Exhausted).
		WithField("peak", report.MaxConcurrent).
		Debug("load generation finished")
	return report, nil
}

func (r *run) work(ctx context.Context, worker int) error {
	for op := 0; op < r.cfg.OpsPerWorker; op++ {
		if err := r.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}

		res, err := r.acquire(ctx)
		if errors.Is(err, apperrors.ErrGaveUp) {
			atomic.AddUint64(&r.gaveUp, 1)
			continue
		}
		if err != nil {
			return fmt.Errorf("worker %d: %w", worker, err)
		}

		if err := r.hold(ctx, worker, res); err != nil {
			return err
		}
	}
	return nil
}

// acquire gets a resource according to the configured mode.
func (r *run) acquire(ctx context.Context) (*resource.Resource, error) {
	if r.cfg.Mode == Wait {
		return r.p.AcquireWait(ctx)
	}

	for attempt := 0; ; attempt++ {
		res, err := r.p.Acquire()
		if err == nil {
			return res, nil
		}
		if !apperrors.IsExhausted(err) {
			return nil, err
		}
		atomic.AddUint64(&r.exhausted, 1)

		if attempt >= r.cfg.MaxRetries {
			return nil, apperrors.ErrGaveUp
		}
		atomic.AddUint64(&r.retries, 1)

		if err := sleep(ctx, r.cfg.RetryBackoff*time.Duration(attempt+1)); err != nil {
			return nil, err
		}
	}
}

// hold records the checkout, keeps the resource for HoldTime and releases it.
func (r *run) hold(ctx context.Context, worker int, res *resource.Resource) error {
	if prev, loaded := r.holders.LoadOrStore(res, worker); loaded {
		err := fmt.Errorf("%w: resource %s held by workers %d and %d",
			apperrors.ErrDoubleCheckout, res.ID(), prev, worker)
		return apperrors.Join(err, r.p.Release(res))
	}

	n := atomic.AddInt64(&r.inUse, 1)
	for {
		peak := atomic.LoadInt64(&r.peak)
		if n <= peak || atomic.CompareAndSwapInt64(&r.peak, peak, n) {
			break
		}
	}

	holdErr := sleep(ctx, r.cfg.HoldTime)

	atomic.AddInt64(&r.inUse, -1)
	r.holders.Delete(res)
	if err := r.p.Release(res); err != nil {
		return fmt.Errorf("worker %d: %w", worker, err)
	}
	if holdErr != nil {
		return holdErr
	}

	atomic.AddUint64(&r.successes, 1)
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
