package fleet

import (
	"context"
	"errors"
)

// ErrNoAggregator means a view asked for fleet state outside an aggregator scope.
var ErrNoAggregator = errors.New("fleet: no aggregator in scope, wrap the handler with middleware.FleetScope")

type contextKey struct{}

// NewContext returns a copy of ctx carrying r.
func NewContext(ctx context.Context, r Reader) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the Reader stored in ctx, if any.
func FromContext(ctx context.Context) (Reader, bool) {
	r, ok := ctx.Value(contextKey{}).(Reader)
	return r, ok && r != nil
}

// MustFromContext is like FromContext but panics with ErrNoAggregator when
// ctx carries no Reader. A missing scope is a wiring bug, not a runtime condition.
func MustFromContext(ctx context.Context) Reader {
	r, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoAggregator)
	}
	return r
}
