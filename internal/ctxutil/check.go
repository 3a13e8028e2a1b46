// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled returns the context error once ctx is canceled or past its
// deadline, nil otherwise.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

// Detached returns a context that keeps ctx's values but is never canceled
// with it. The end-of-run report is sent on one.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
