// Package pool provides a bounded pool of reusable resources.
// Acquisition and release are serialized by a single mutex per pool, so a
// resource is never handed to two callers at once and the pool never grows
// past its maximum size.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/resource"
)

// Config configures the resource pool.
type Config struct {
	// MaxSize is the maximum number of resources the pool will create.
	// Default: 3
	MaxSize int
	// AcquireTimeout bounds AcquireWait when the context has no deadline.
	// Zero waits until the context is done.
	// Default: 5 seconds
	AcquireTimeout time.Duration
	// StrictRelease makes releasing an already idle resource an error
	// instead of a no-op.
	// Default: false
	StrictRelease bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:        3,
		AcquireTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.MaxSize)
	}
	if c.AcquireTimeout < 0 {
		return fmt.Errorf("pool: acquire timeout must not be negative: %w", apperrors.ErrConfiguration)
	}
	return nil
}

// Pool is a bounded pool of resources.
//
// Resources are created lazily and kept in creation order. Acquire hands out
// the earliest-created idle resource, creating a new one only when none is
// idle and the pool is below MaxSize. Resources are never evicted.
type Pool struct {
	config    Config
	mu        sync.Mutex
	cond      *sync.Cond
	resources []*resource.Resource
	owned     map[*resource.Resource]struct{}
	drained   map[*resource.Resource]struct{} // idled by Drain while held
	closed    bool

	// Metrics
	acquireCount     uint64
	acquireSuccess   uint64
	acquireExhausted uint64
	acquireFailed    uint64
	releaseCount     uint64
	invalidReleases  uint64
	waitCount        uint64
}

// New creates a pool holding at most maxSize resources, with defaults for
// everything else.
func New(maxSize int) (*Pool, error) {
	cfg := DefaultConfig()
	cfg.MaxSize = maxSize
	return NewWithConfig(cfg)
}

// NewWithConfig creates a pool from cfg.
func NewWithConfig(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		config:    cfg,
		resources: make([]*resource.Resource, 0, cfg.MaxSize),
		owned:     make(map[*resource.Resource]struct{}, cfg.MaxSize),
		drained:   make(map[*resource.Resource]struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	log.WithField("maxSize", cfg.MaxSize).WithField("strictRelease", cfg.StrictRelease).Debug("pool created")
	return p, nil
}

// Acquire hands out an idle resource, creating one if the pool has room.
// It never blocks: when every resource is in use and the pool is full it
// returns ErrPoolExhausted and leaves the pool unchanged.
func (p *Pool) Acquire() (*resource.Resource, error) {
	atomic.AddUint64(&p.acquireCount, 1)
	PoolAcquireTotal.Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.recordFailure()
		return nil, ErrPoolClosed
	}

	r, ok := p.acquireLocked()
	if !ok {
		atomic.AddUint64(&p.acquireExhausted, 1)
		PoolAcquireExhaustedTotal.Inc()
		log.WithField("maxSize", p.config.MaxSize).Debug("pool exhausted")
		return nil, ErrPoolExhausted
	}

	p.recordSuccess()
	return r, nil
}

// AcquireWait is like Acquire but waits for a release instead of failing
// when the pool is exhausted. If ctx has no deadline, the configured
// AcquireTimeout applies. There is no ordering guarantee between waiters.
func (p *Pool) AcquireWait(ctx context.Context) (*resource.Resource, error) {
	atomic.AddUint64(&p.acquireCount, 1)
	PoolAcquireTotal.Inc()
	start := time.Now()

	// Use configured timeout if context has no deadline
	acquireCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && p.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.config.AcquireTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	waited := false
	for {
		if p.closed {
			p.recordFailure()
			return nil, ErrPoolClosed
		}

		select {
		case <-acquireCtx.Done():
			p.recordFailure()
			// A Release may have signaled this waiter; hand the wakeup on.
			p.cond.Signal()
			if acquireCtx.Err() == context.DeadlineExceeded {
				return nil, ErrTimeout
			}
			return nil, acquireCtx.Err()
		default:
		}

		if r, ok := p.acquireLocked(); ok {
			p.recordSuccess()
			PoolAcquireLatency.ObserveDuration(time.Since(start))
			return r, nil
		}

		if !waited {
			waited = true
			atomic.AddUint64(&p.waitCount, 1)
			PoolAcquireWaitsTotal.Inc()
		}
		log.Debug("waiting for available resource")
		p.waitWithContext(acquireCtx)
	}
}

// acquireLocked runs the first-fit scan (caller must hold lock).
// The earliest-created idle resource wins; a new resource is created only
// when none is idle and the pool is below MaxSize.
func (p *Pool) acquireLocked() (*resource.Resource, bool) {
	for _, r := range p.resources {
		if !r.IsInUse() {
			r.Connect()
			delete(p.drained, r)
			log.WithField("id", r.ID()).Debug("reusing idle resource")
			return r, true
		}
	}

	if len(p.resources) < p.config.MaxSize {
		r := resource.New()
		r.Connect()
		p.resources = append(p.resources, r)
		p.owned[r] = struct{}{}
		PoolResourcesCreatedTotal.Inc()
		log.WithField("id", r.ID()).WithField("size", len(p.resources)).Debug("created new resource")
		return r, true
	}

	return nil, false
}

// waitWithContext waits for a condition signal or context cancellation.
func (p *Pool) waitWithContext(ctx context.Context) {
	// Start a goroutine to signal on context cancellation
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-done:
		}
	}()
	p.cond.Wait()
	close(done)
}

func (p *Pool) recordSuccess() {
	atomic.AddUint64(&p.acquireSuccess, 1)
	PoolAcquireSuccessTotal.Inc()
}

func (p *Pool) recordFailure() {
	atomic.AddUint64(&p.acquireFailed, 1)
	PoolAcquireFailedTotal.Inc()
}

// Release returns r to the pool and makes it available to the next Acquire.
//
// Releasing nil or a resource created by another pool returns
// ErrInvalidRelease. Releasing an idle resource is a no-op unless the pool
// was configured with StrictRelease, in which case it returns
// ErrDoubleRelease. Releases into a closed pool are accepted.
func (p *Pool) Release(r *resource.Resource) error {
	atomic.AddUint64(&p.releaseCount, 1)
	PoolReleaseTotal.Inc()

	if r == nil {
		p.recordInvalidRelease()
		log.Warn("release of nil resource")
		return ErrInvalidRelease
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.owned[r]; !ok {
		p.recordInvalidRelease()
		log.WithField("id", r.ID()).Warn("release of resource not owned by this pool")
		return fmt.Errorf("%w: resource %s", ErrInvalidRelease, r.ID())
	}

	if !r.IsInUse() {
		if _, ok := p.drained[r]; ok {
			delete(p.drained, r)
			log.WithField("id", r.ID()).Debug("release of drained resource")
			return nil
		}
		if p.config.StrictRelease && !p.closed {
			p.recordInvalidRelease()
			log.WithField("id", r.ID()).Warn("release of idle resource")
			return fmt.Errorf("%w: resource %s", ErrDoubleRelease, r.ID())
		}
		log.WithField("id", r.ID()).Debug("release of idle resource ignored")
		return nil
	}

	r.Disconnect()
	p.cond.Signal()
	log.WithField("id", r.ID()).Debug("resource released to pool")
	return nil
}

func (p *Pool) recordInvalidRelease() {
	atomic.AddUint64(&p.invalidReleases, 1)
	PoolInvalidReleaseTotal.Inc()
}

// Drain force-disconnects every resource and returns how many were in use.
// Resources stay in the pool. Callers still holding a drained resource must
// stop using it: it may be handed out again immediately. Their eventual
// Release is accepted even with StrictRelease, as long as the resource has
// not been acquired again in between.
func (p *Pool) Drain() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.disconnectAllLocked()
	p.cond.Broadcast()

	if n > 0 {
		log.WithField("inUse", n).Warn("drained pool with resources still in use")
	} else {
		log.Debug("drained pool")
	}
	return n
}

// disconnectAllLocked idles every resource (caller must hold lock).
func (p *Pool) disconnectAllLocked() int {
	n := 0
	for _, r := range p.resources {
		if r.IsInUse() {
			r.Disconnect()
			p.drained[r] = struct{}{}
			n++
		}
	}
	return n
}

// Close disconnects every resource and rejects further acquires.
// Waiting AcquireWait calls return ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.closed = true
	n := p.disconnectAllLocked()
	p.cond.Broadcast()

	log.WithField("resources", len(p.resources)).WithField("inUse", n).Debug("pool closed")
	return nil
}

// Len returns the number of resources created so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resources)
}

// Cap returns the maximum number of resources.
func (p *Pool) Cap() int {
	return p.config.MaxSize
}

// ResourceInfo describes one resource in a Snapshot.
type ResourceInfo struct {
	ID        string
	InUse     bool
	CreatedAt time.Time
	LastUsed  time.Time
}

// Snapshot returns the state of every resource in creation order.
func (p *Pool) Snapshot() []ResourceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	infos := make([]ResourceInfo, 0, len(p.resources))
	for _, r := range p.resources {
		infos = append(infos, ResourceInfo{
			ID:        r.ID(),
			InUse:     r.IsInUse(),
			CreatedAt: r.CreatedAt(),
			LastUsed:  r.LastUsed(),
		})
	}
	return infos
}

// Stats holds pool statistics.
type Stats struct {
	// MaxSize is the maximum pool size.
	MaxSize int
	// NumCreated is the number of resources created so far.
	NumCreated int
	// NumIdle is the number of idle resources.
	NumIdle int
	// NumInUse is the number of resources currently held by callers.
	NumInUse int
	// AcquireCount is the total number of acquire attempts.
	AcquireCount uint64
	// AcquireSuccess is the number of successful acquires.
	AcquireSuccess uint64
	// AcquireExhausted is the number of acquires rejected with ErrPoolExhausted.
	AcquireExhausted uint64
	// AcquireFailed counts acquires that failed for other reasons
	// (closed pool, timeout, cancellation).
	AcquireFailed uint64
	// ReleaseCount is the number of release calls.
	ReleaseCount uint64
	// InvalidReleases is the number of rejected releases.
	InvalidReleases uint64
	// WaitCount is the number of AcquireWait calls that had to wait.
	WaitCount uint64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	// In-use is read from the resource flags, the same state Acquire scans.
	inUse := 0
	for _, r := range p.resources {
		if r.IsInUse() {
			inUse++
		}
	}

	return Stats{
		MaxSize:          p.config.MaxSize,
		NumCreated:       len(p.resources),
		NumIdle:          len(p.resources) - inUse,
		NumInUse:         inUse,
		AcquireCount:     atomic.LoadUint64(&p.acquireCount),
		AcquireSuccess:   atomic.LoadUint64(&p.acquireSuccess),
		AcquireExhausted: atomic.LoadUint64(&p.acquireExhausted),
		AcquireFailed:    atomic.LoadUint64(&p.acquireFailed),
		ReleaseCount:     atomic.LoadUint64(&p.releaseCount),
		InvalidReleases:  atomic.LoadUint64(&p.invalidReleases),
		WaitCount:        atomic.LoadUint64(&p.waitCount),
	}
}
