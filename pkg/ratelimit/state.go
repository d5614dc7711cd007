// Package ratelimit enforces a minimal wall-clock interval between
// consecutive outbound E-utilities requests.
//
// NCBI asks clients to stay under three requests per second without an API
// key, hence the default interval of slightly over a third of a second. The
// last dispatch timestamp lives in a Store: MemoryStore keeps it per client
// instance, RedisStore shares it between processes.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Redis key for the shared dispatch timestamp.
const RedisKeyLastDispatch = "eutils:rate_limit:last_dispatch"

// Store holds the timestamp of the last dispatched request.
type Store interface {
	// LastDispatch returns the last recorded dispatch time; ok is false
	// when no request has been dispatched yet.
	LastDispatch(ctx context.Context) (t time.Time, ok bool, err error)

	// SetLastDispatch records a dispatch time.
	SetLastDispatch(ctx context.Context, t time.Time) error
}

// State is a snapshot of limiter state.
type State struct {
	// LastDispatch is the time the most recent request was dispatched.
	LastDispatch time.Time `json:"last_dispatch"`

	// MinInterval is the enforced spacing between requests.
	MinInterval time.Duration `json:"min_interval"`
}

// NextAllowed returns the earliest time the next request may be dispatched.
func (s State) NextAllowed() time.Time {
	if s.LastDispatch.IsZero() {
		return time.Time{}
	}
	return s.LastDispatch.Add(s.MinInterval)
}

// WaitAt returns how long a request issued at now has to wait. Returns 0 if
// no wait is required.
func (s State) WaitAt(now time.Time) time.Duration {
	if s.LastDispatch.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.LastDispatch)
	if elapsed >= s.MinInterval {
		return 0
	}
	return s.MinInterval - elapsed
}

// MemoryStore keeps the timestamp in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	last time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LastDispatch implements Store.
func (m *MemoryStore) LastDispatch(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero(), nil
}

// SetLastDispatch implements Store.
func (m *MemoryStore) SetLastDispatch(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = t
	return nil
}

// clone returns an independent copy.
func (m *MemoryStore) clone() *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &MemoryStore{last: m.last}
}
