// respool exercises a bounded, reusable resource pool.
//
// It replays the classic three-connection walkthrough, drives a pool with
// concurrent simulated callers, and can serve pool metrics in Prometheus
// text format while a load runs.
//
// Usage:
//
//	respool [global flags] <command> [flags]
//
// Commands:
//
//	demo            Replay the capacity-3 acquire/release walkthrough
//	stress          Run concurrent callers against a pool and print a report
//	metrics         Run stress continuously and serve /metrics
//	config init     Write a default configuration file
//	config show     Print the effective configuration
//
// Global flags:
//
//	--config string
//	    Path to configuration file (default "respool.toml")
//	-v, --verbose
//	    Enable verbose logging
//	--version
//	    Print version and exit
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/go-i2p/respool/lib/config"
	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/version"
)

// Exit statuses
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every subcommand needs.
type cli struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("respool", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.SortFlags = false

	configPath := fs.String("config", config.DefaultFileName, "Path to configuration file")
	verbose := fs.BoolP("verbose", "v", false, "Enable verbose logging")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "respool - bounded resource pool playground\n\n")
		fmt.Fprintf(stderr, "Usage:\n")
		fmt.Fprintf(stderr, "  respool [flags] demo           Replay the capacity-3 walkthrough\n")
		fmt.Fprintf(stderr, "  respool [flags] stress         Run concurrent callers against a pool\n")
		fmt.Fprintf(stderr, "  respool [flags] metrics        Serve /metrics while stress runs\n")
		fmt.Fprintf(stderr, "  respool [flags] config init    Write a default configuration file\n")
		fmt.Fprintf(stderr, "  respool [flags] config show    Print the effective configuration\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintf(stdout, "respool version %s\n", version.Full())
		return exitOK
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	c := &cli{
		configPath: *configPath,
		stdout:     stdout,
		stderr:     stderr,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: logLevel,
		})),
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	switch rest[0] {
	case "demo":
		return c.demo(rest[1:])
	case "stress":
		return c.stress(rest[1:])
	case "metrics":
		return c.serveMetrics(rest[1:])
	case "config":
		return c.configCmd(rest[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", rest[0])
		fs.Usage()
		return exitUsage
	}
}

// loadConfig reads the configuration file named by --config.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("configuration loaded", "path", c.configPath)
	return cfg, nil
}

// fail reports err and maps it to an exit status. The full error chain is
// only logged at debug level.
func (c *cli) fail(msg string, err error) int {
	e := apperrors.FromSentinel(err)
	c.logger.Error(msg, "error", e.SafeMessage(), "code", e.Code)
	c.logger.Debug(msg, "detail", err)
	return exitStatus(e)
}

// exitStatus maps an error to a process exit status.
func exitStatus(err error) int {
	switch apperrors.Code(err) {
	case 0:
		return exitOK
	case apperrors.CodeConfiguration, apperrors.CodeInvalidParams:
		return exitUsage
	default:
		return exitError
	}
}
