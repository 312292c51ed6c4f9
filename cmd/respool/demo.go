package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/pool"
	"github.com/go-i2p/respool/lib/resource"
)

// demoSize is the capacity used by the walkthrough.
const demoSize = 3

// demo acquires three resources from a pool of three, shows that a fourth
// acquire fails, releases the first and shows that it is handed out again.
func (c *cli) demo(args []string) int {
	fs := pflag.NewFlagSet("demo", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	size := fs.IntP("size", "s", demoSize, "Pool capacity")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	p, err := pool.New(*size)
	if err != nil {
		return c.fail("failed to create pool", err)
	}
	defer p.Close()

	out := c.stdout
	fmt.Fprintf(out, "Pool capacity: %d\n\n", p.Cap())

	held := make([]*resource.Resource, 0, *size)
	for i := 1; i <= *size; i++ {
		r, err := p.Acquire()
		if err != nil {
			return c.fail("acquire failed", err)
		}
		held = append(held, r)
		fmt.Fprintf(out, "Acquired resource %d: %s\n", i, r)
	}

	_, err = p.Acquire()
	switch {
	case apperrors.IsExhausted(err):
		fmt.Fprintf(out, "Acquire %d: no available resources in the pool\n", *size+1)
	case err != nil:
		return c.fail("acquire failed", err)
	default:
		return c.fail("demo failed", apperrors.Wrap(apperrors.CodeInternal, "pool handed out more resources than its capacity", apperrors.ErrInternal))
	}

	first := held[0]
	if err := p.Release(first); err != nil {
		return c.fail("release failed", err)
	}
	fmt.Fprintf(out, "Released resource 1: %s\n", first)

	again, err := p.Acquire()
	if err != nil {
		return c.fail("reacquire failed", err)
	}
	fmt.Fprintf(out, "Reacquired: %s (reused resource 1: %t)\n\n", again, again == first)

	for _, r := range append(held[1:], again) {
		if err := p.Release(r); err != nil {
			return c.fail("release failed", err)
		}
	}

	printSnapshot(c, p)
	return exitOK
}

// printSnapshot writes one row per resource in creation order.
func printSnapshot(c *cli, p *pool.Pool) {
	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tSTATE\tLAST USED")
	for i, info := range p.Snapshot() {
		state := "idle"
		if info.InUse {
			state = "in-use"
		}
		lastUsed := "never"
		if !info.LastUsed.IsZero() {
			lastUsed = info.LastUsed.Format(time.RFC3339Nano)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, info.ID, state, lastUsed)
	}
	w.Flush()
}
