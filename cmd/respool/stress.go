package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-i2p/respool/lib/config"
	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/loadgen"
	"github.com/go-i2p/respool/lib/pool"
	"github.com/go-i2p/respool/lib/ratelimit"
)

// stressFlags are the command-line overrides shared by stress and metrics.
type stressFlags struct {
	fs *pflag.FlagSet

	size    *int
	strict  *bool
	timeout *time.Duration
	workers *int
	ops     *int
	hold    *time.Duration
	mode    *string
	retries *int
	backoff *time.Duration
	rate    *float64
	burst   *int
}

func newStressFlags(name string, c *cli) *stressFlags {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.SortFlags = false

	return &stressFlags{
		fs:      fs,
		size:    fs.IntP("size", "s", 0, "Pool capacity (overrides pool.max_size)"),
		strict:  fs.Bool("strict", false, "Reject releases of idle resources (overrides pool.strict_release)"),
		timeout: fs.Duration("timeout", 0, "Blocking acquire timeout (overrides pool.acquire_timeout)"),
		workers: fs.IntP("workers", "w", 0, "Number of concurrent callers (overrides stress.workers)"),
		ops:     fs.IntP("ops", "n", 0, "Acquire/release cycles per caller (overrides stress.ops_per_worker)"),
		hold:    fs.Duration("hold", 0, "How long each caller keeps a resource (overrides stress.hold_time)"),
		mode:    fs.StringP("mode", "m", "", "Acquire mode: fail-fast or wait (overrides stress.mode)"),
		retries: fs.Int("retries", 0, "Retries after an exhausted acquire (overrides stress.max_retries)"),
		backoff: fs.Duration("backoff", 0, "Base retry backoff (overrides stress.retry_backoff)"),
		rate:    fs.Float64("rate", 0, "Acquisitions per second across all callers, 0 for unlimited"),
		burst:   fs.Int("burst", 0, "Rate limiter burst size"),
	}
}

// apply copies every flag the user set onto cfg and revalidates it.
func (f *stressFlags) apply(cfg *config.Config) error {
	if f.fs.Changed("size") {
		cfg.Pool.MaxSize = *f.size
	}
	if f.fs.Changed("strict") {
		cfg.Pool.StrictRelease = *f.strict
	}
	if f.fs.Changed("timeout") {
		cfg.Pool.AcquireTimeout = *f.timeout
	}
	if f.fs.Changed("workers") {
		cfg.Stress.Workers = *f.workers
	}
	if f.fs.Changed("ops") {
		cfg.Stress.OpsPerWorker = *f.ops
	}
	if f.fs.Changed("hold") {
		cfg.Stress.HoldTime = *f.hold
	}
	if f.fs.Changed("mode") {
		cfg.Stress.Mode = *f.mode
	}
	if f.fs.Changed("retries") {
		cfg.Stress.MaxRetries = *f.retries
	}
	if f.fs.Changed("backoff") {
		cfg.Stress.RetryBackoff = *f.backoff
	}
	if f.fs.Changed("rate") {
		cfg.Stress.Rate = *f.rate
	}
	if f.fs.Changed("burst") {
		cfg.Stress.Burst = *f.burst
	}
	return cfg.Validate()
}

// loadgenConfig converts the stress section into a loadgen.Config.
func loadgenConfig(cfg *config.Config) (loadgen.Config, error) {
	mode, err := loadgen.ParseMode(cfg.Stress.Mode)
	if err != nil {
		return loadgen.Config{}, err
	}

	lc := loadgen.Config{
		Workers:      cfg.Stress.Workers,
		OpsPerWorker: cfg.Stress.OpsPerWorker,
		HoldTime:     cfg.Stress.HoldTime,
		Mode:         mode,
		MaxRetries:   cfg.Stress.MaxRetries,
		RetryBackoff: cfg.Stress.RetryBackoff,
	}
	if cfg.Stress.Rate > 0 {
		lc.Limiter = ratelimit.New(cfg.Stress.Rate, cfg.Stress.Burst)
	}
	return lc, nil
}

// stress runs one load generation pass and prints the report.
func (c *cli) stress(args []string) int {
	flags := newStressFlags("stress", c)
	if err := flags.fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail("failed to load config", err)
	}
	if err := flags.apply(cfg); err != nil {
		return c.fail("invalid flags", err)
	}
	lc, err := loadgenConfig(cfg)
	if err != nil {
		return c.fail("invalid stress config", err)
	}

	p, err := pool.NewWithConfig(cfg.PoolConfig())
	if err != nil {
		return c.fail("failed to create pool", err)
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.logger.Info("stress run starting",
		"size", cfg.Pool.MaxSize,
		"workers", lc.Workers,
		"ops", lc.OpsPerWorker,
		"mode", lc.Mode.String())

	report, err := loadgen.Run(ctx, p, lc)
	printReport(c, report, p.Stats())
	if err != nil {
		switch {
		case apperrors.IsInvalidState(err):
			c.logger.Error("double checkout detected", "error", err)
			return exitError
		case apperrors.IsTimeout(err):
			c.logger.Warn("blocking acquire timed out, raise pool.acquire_timeout or pool.max_size",
				"timeout", cfg.Pool.AcquireTimeout)
		}
		return c.fail("stress run failed", err)
	}
	return exitOK
}

func printReport(c *cli, r loadgen.Report, s pool.Stats) {
	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cycles completed:\t%d\n", r.Successes)
	fmt.Fprintf(w, "Exhausted acquires:\t%d\n", r.Exhausted)
	fmt.Fprintf(w, "Retries:\t%d\n", r.Retries)
	fmt.Fprintf(w, "Gave up:\t%d\n", r.GaveUp)
	fmt.Fprintf(w, "Peak concurrent:\t%d / %d\n", r.MaxConcurrent, s.MaxSize)
	fmt.Fprintf(w, "Duration:\t%s\n", r.Duration)
	fmt.Fprintf(w, "Throughput:\t%.1f cycles/s\n", r.Throughput())
	fmt.Fprintf(w, "Resources created:\t%d\n", s.NumCreated)
	fmt.Fprintf(w, "Pool acquires:\t%d (ok %d, exhausted %d, failed %d)\n",
		s.AcquireCount, s.AcquireSuccess, s.AcquireExhausted, s.AcquireFailed)
	fmt.Fprintf(w, "Pool releases:\t%d (invalid %d)\n", s.ReleaseCount, s.InvalidReleases)
	if r.ErrorCode != 0 {
		fmt.Fprintf(w, "Stopped with code:\t%d\n", r.ErrorCode)
	}
	w.Flush()
}
