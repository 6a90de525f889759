package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a generation id with no stored row.
var ErrNotFound = errors.New("generation not found")

// Deadlines applied to each store operation.
const (
	ReadTimeout  = 5 * time.Second
	ListTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
)

func readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, ReadTimeout)
}

func listContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, ListTimeout)
}

func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, WriteTimeout)
}

// bounded applies d unless ctx already expires sooner.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
