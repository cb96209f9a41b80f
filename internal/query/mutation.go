package query

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrInFlight is returned when a mutation is submitted while the previous
// submission of the same mutation is still outstanding.
var ErrInFlight = errors.New("action already in progress")

// Mutation is a write that declares which query names it invalidates.
type Mutation struct {
	cache       *Cache
	name        string
	invalidates []string
	pending     atomic.Bool
}

// NewMutation creates a mutation named name that invalidates the given query
// names in the caller's scope after every success.
func NewMutation(cache *Cache, name string, invalidates ...string) *Mutation {
	return &Mutation{cache: cache, name: name, invalidates: invalidates}
}

// Name returns the mutation's name.
func (m *Mutation) Name() string {
	return m.name
}

// Pending reports whether a submission is outstanding.
func (m *Mutation) Pending() bool {
	return m.pending.Load()
}

// Run executes fn unless another Run is in progress. Invalidation happens only
// after fn succeeds, never before.
func (m *Mutation) Run(ctx context.Context, scope string, fn func(context.Context) error) error {
	if !m.pending.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer m.pending.Store(false)

	if err := fn(ctx); err != nil {
		return err
	}

	if len(m.invalidates) > 0 {
		m.cache.Invalidate(scope, m.invalidates...)
	}
	return nil
}
