// Package resource provides the reusable unit handed out by a pool.
//
// A Resource has two states, idle and in use. Connect moves it to in use and
// Disconnect moves it back to idle; both are idempotent and never fail.
// Exclusive ownership is the pool's job, not the Resource's: the flag only
// records what the pool decided.
package resource

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Resource is a single unit of reusable capacity.
// The zero value is not usable; create Resources with New.
type Resource struct {
	id        uuid.UUID
	createdAt time.Time
	inUse     atomic.Bool
	lastUsed  atomic.Int64 // unix nanoseconds of the last Connect, 0 if never
}

// New returns an idle Resource with a fresh ID.
func New() *Resource {
	r := &Resource{
		id:        uuid.New(),
		createdAt: time.Now(),
	}
	log.WithField("id", r.id.String()).Debug("resource created")
	return r
}

// ID returns the Resource's unique identifier.
func (r *Resource) ID() string {
	return r.id.String()
}

// CreatedAt returns when the Resource was created.
func (r *Resource) CreatedAt() time.Time {
	return r.createdAt
}

// LastUsed returns when the Resource was last connected.
// It returns the zero time if the Resource has never been connected.
func (r *Resource) LastUsed() time.Time {
	ns := r.lastUsed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Connect marks the Resource in use. Calling it on a Resource that is
// already in use re-asserts the state.
func (r *Resource) Connect() {
	r.lastUsed.Store(time.Now().UnixNano())
	r.inUse.Store(true)
	log.WithField("id", r.id.String()).Debug("connecting resource")
}

// Disconnect marks the Resource idle. Calling it on an idle Resource is a no-op.
func (r *Resource) Disconnect() {
	r.inUse.Store(false)
	log.WithField("id", r.id.String()).Debug("disconnecting resource")
}

// IsInUse reports whether the Resource is currently held by a caller.
func (r *Resource) IsInUse() bool {
	return r.inUse.Load()
}

// String returns a short description for logs and CLI output.
func (r *Resource) String() string {
	state := "idle"
	if r.IsInUse() {
		state = "in-use"
	}
	return r.id.String()[:8] + "(" + state + ")"
}
