package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

// ErrDisabled is reported by a query whose prerequisites are not met.
var ErrDisabled = errors.New("query disabled")

// Status describes where a Result came from.
type Status int

// Result statuses.
const (
	StatusDisabled Status = iota
	StatusFresh
	StatusCached
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusFresh:
		return "fresh"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one query. Each query carries its own error so a
// failing section never hides the others.
type Result[T any] struct {
	Data   T
	Err    error
	Key    Key
	Status Status
}

// OK reports whether the result holds usable data.
func (r Result[T]) OK() bool {
	return r.Status == StatusFresh || r.Status == StatusCached
}

// Fetch returns the cached value for key, or calls fn and caches its result.
// A disabled query never calls fn. Failures are returned but never cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, enabled bool, fn func(context.Context) (T, error)) Result[T] {
	if !enabled {
		return Result[T]{Key: key, Status: StatusDisabled, Err: ErrDisabled}
	}

	if v, ok := c.Get(key); ok {
		if data, ok := v.(T); ok {
			return Result[T]{Key: key, Status: StatusCached, Data: data}
		}
	}

	gen := c.track(key)

	var data T
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		data, fetchErr = fn(ctx)
		return fetchErr
	}, c.retry)
	if err != nil {
		common.LogDebug("Query failed", common.Fields{"query": key.String(), "error": err.Error()})
		return Result[T]{Key: key, Status: StatusFailed, Err: err}
	}

	if !c.setIfCurrent(key, gen, data) {
		common.LogDebug("Discarded result of invalidated query", common.Fields{"query": key.String()})
	}
	return Result[T]{Key: key, Status: StatusFresh, Data: data}
}
