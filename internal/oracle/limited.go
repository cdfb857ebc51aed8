package oracle

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/semaphore"
)

// Limited gates an Oracle behind the run-wide concurrency semaphore so
// that oracle calls and provider calls compete for the same slots.
type Limited struct {
	inner Oracle
	sem   *semaphore.Weighted
}

// Limit wraps an oracle with the shared semaphore.
func Limit(inner Oracle, sem *semaphore.Weighted) *Limited {
	return &Limited{inner: inner, sem: sem}
}

// Ask acquires a slot, forwards the call, and releases the slot.
func (l *Limited) Ask(ctx context.Context, prompt, schema string) (json.RawMessage, float64, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer l.sem.Release(1)
	return l.inner.Ask(ctx, prompt, schema)
}
