package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/go-i2p/respool/lib/errors"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	if !strings.HasPrefix(out, "respool version ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"serve"}},
		{"unknown flag", []string{"--bogus", "demo"}},
		{"config without subcommand", []string{"config"}},
		{"unknown config subcommand", []string{"config", "edit"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tc.args...); code != exitUsage {
				t.Errorf("exit = %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestDemo(t *testing.T) {
	code, out, stderr := runCLI(t, "demo")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}

	for _, want := range []string{
		"Pool capacity: 3",
		"Acquired resource 1:",
		"Acquired resource 3:",
		"Acquire 4: no available resources in the pool",
		"Released resource 1:",
		"reused resource 1: true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Snapshot lists exactly the three created resources, all idle.
	if n := strings.Count(out, "  idle  "); n != 3 {
		t.Errorf("snapshot shows %d idle resources, want 3:\n%s", n, out)
	}
}

func TestDemoInvalidSize(t *testing.T) {
	if code, _, _ := runCLI(t, "demo", "--size", "0"); code != exitUsage {
		t.Errorf("exit = %d, want %d", code, exitUsage)
	}
}

func TestStress(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.toml")

	code, out, stderr := runCLI(t, "--config", cfgPath, "stress",
		"--size", "2", "--workers", "4", "--ops", "10", "--hold", "100us", "--mode", "wait")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(out, "Cycles completed:") || !strings.Contains(out, "40") {
		t.Errorf("unexpected report:\n%s", out)
	}
	if !strings.Contains(out, "/ 2") {
		t.Errorf("report should show pool size 2:\n%s", out)
	}
}

func TestStressFromConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.yaml")
	yamlCfg := `pool:
  max_size: 1
  acquire_timeout: 2s
stress:
  workers: 2
  ops_per_worker: 3
  hold_time: 0s
  mode: wait
  max_retries: 0
  retry_backoff: 0s
  burst: 1
metrics:
  listen: 127.0.0.1:0
`
	if err := os.WriteFile(cfgPath, []byte(yamlCfg), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	code, out, stderr := runCLI(t, "--config", cfgPath, "stress")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(out, "Peak concurrent:") || !strings.Contains(out, "1 / 1") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestStressInvalidFlags(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.toml")

	tests := []struct {
		name string
		args []string
	}{
		{"bad mode", []string{"--mode", "block"}},
		{"zero workers", []string{"--workers", "0"}},
		{"zero size", []string{"--size", "0"}},
		{"negative hold", []string{"--hold", "-1s"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "stress"}, tc.args...)
			if code, _, _ := runCLI(t, args...); code != exitUsage {
				t.Errorf("exit = %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "respool.toml")

	code, out, stderr := runCLI(t, "--config", cfgPath, "config", "init")
	if code != exitOK {
		t.Fatalf("init exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(out, cfgPath) {
		t.Errorf("init output should name the file, got %q", out)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	code, _, stderr = runCLI(t, "--config", cfgPath, "config", "init")
	if code != exitError {
		t.Errorf("second init exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("second init should explain the refusal:\n%s", stderr)
	}
	if code, _, _ := runCLI(t, "--config", cfgPath, "config", "init", "--force"); code != exitOK {
		t.Errorf("forced init exit = %d, want %d", code, exitOK)
	}

	code, out, stderr = runCLI(t, "--config", cfgPath, "config", "show")
	if code != exitOK {
		t.Fatalf("show exit = %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{"[pool]", "max_size = 3", "[stress]", "mode = 'fail-fast'"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.yml")

	code, out, stderr := runCLI(t, "--config", cfgPath, "config", "show")
	if code != exitOK {
		t.Fatalf("show exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(out, "max_size: 3") {
		t.Errorf("expected YAML output, got:\n%s", out)
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{apperrors.ErrConfigInvalid, exitUsage},
		{apperrors.ErrPoolInvalidSize, exitUsage},
		{apperrors.ErrInvalidInput, exitUsage},
		{apperrors.ErrDoubleCheckout, exitError},
		{apperrors.ErrPoolTimeout, exitError},
		{fmt.Errorf("wrapped: %w", apperrors.ErrPoolClosed), exitError},
	}

	for _, tc := range tests {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := exitStatus(tc.err); got != tc.want {
				t.Errorf("exitStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestMetricsInvalidInterval(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.toml")

	for _, interval := range []string{"0", "-1s"} {
		t.Run(interval, func(t *testing.T) {
			code, _, _ := runCLI(t, "--config", cfgPath, "metrics",
				"--interval", interval, "--listen", "127.0.0.1:0")
			if code != exitUsage {
				t.Errorf("exit = %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestMetricsListenUnavailable(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.toml")

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer taken.Close()

	code, _, stderr := runCLI(t, "--config", cfgPath, "metrics", "--listen", taken.Addr().String())
	if code != exitUsage {
		t.Errorf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "metrics listen address unavailable") {
		t.Errorf("stderr should carry the safe message:\n%s", stderr)
	}
}

func TestStressAcquireTimeout(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "respool.toml")

	code, out, stderr := runCLI(t, "--config", cfgPath, "stress",
		"--mode", "wait", "--size", "1", "--workers", "2", "--ops", "1",
		"--hold", "200ms", "--timeout", "5ms")
	if code != exitError {
		t.Fatalf("exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "pool.acquire_timeout") {
		t.Errorf("stderr should suggest raising the timeout:\n%s", stderr)
	}
	found := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Stopped with code:") {
			found = strings.HasSuffix(line, fmt.Sprintf(" %d", apperrors.CodeTimeout))
		}
	}
	if !found {
		t.Errorf("report should show the timeout code:\n%s", out)
	}
}
