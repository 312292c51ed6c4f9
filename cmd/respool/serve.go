package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-i2p/respool/lib/config"
	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/loadgen"
	"github.com/go-i2p/respool/lib/metrics"
	"github.com/go-i2p/respool/lib/pool"
)

// serveMetrics runs stress passes back to back against one pool and serves
// the metrics registry until SIGINT or SIGTERM.
func (c *cli) serveMetrics(args []string) int {
	flags := newStressFlags("metrics", c)
	listen := flags.fs.StringP("listen", "l", "", "Metrics listen address (overrides metrics.listen)")
	interval := flags.fs.Duration("interval", time.Second, "How often pool gauges are refreshed")
	if err := flags.fs.Parse(args); err != nil {
		return exitUsage
	}
	if *interval <= 0 {
		return c.fail("invalid flags", fmt.Errorf("--interval must be positive, got %s: %w", *interval, apperrors.ErrInvalidInput))
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail("failed to load config", err)
	}
	if flags.fs.Changed("listen") {
		cfg.Metrics.Listen = *listen
	}
	cfg.Metrics.Enabled = true
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

	if err := c.serve(ctx, cfg, p, lc, *interval); err != nil {
		return c.fail("metrics server failed", err)
	}
	c.logger.Info("respool stopped")
	return exitOK
}

func (c *cli) serve(ctx context.Context, cfg *config.Config, p *pool.Pool, lc loadgen.Config, interval time.Duration) error {
	ln, err := net.Listen("tcp", cfg.Metrics.Listen)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfiguration, "metrics listen address unavailable", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metrics.RecordStartTime()
	c.logger.Info("serving metrics", "addr", "http://"+ln.Addr().String()+"/metrics", "size", cfg.Pool.MaxSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			pool.UpdateMetrics(p.Stats())
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	g.Go(func() error {
		for runs := 1; ; runs++ {
			report, err := loadgen.Run(gctx, p, lc)
			if gctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
			c.logger.Debug("stress pass finished",
				"run", runs,
				"cycles", report.Successes,
				"exhausted", report.Exhausted,
				"peak", report.MaxConcurrent)
		}
	})

	return g.Wait()
}
