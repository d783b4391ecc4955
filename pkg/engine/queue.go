// Package engine implements C5 (the sync consumer) and C6 (scheduler &
// lifecycle) described in spec §4.5/§5/§6: the bounded multi-producer,
// single-consumer diff queue, the batch-drain/merge/diff-the-projection
// consumer loop, and the errgroup-coordinated task lifecycle.
package engine

import (
	"context"
	"fmt"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

// QueuedDiff pairs a canonical diff with the entity id it concerns, the
// unit of work producers hand to the consumer (spec §4.4 step 6: "enqueue
// (id, diff)").
type QueuedDiff struct {
	ID   canonical.ID
	Diff canonical.TaskDiff
}

// Sink is the narrow producer-facing view of Queue. Producers (pkg/up-
// stream, pkg/downstream) depend on this interface rather than *Queue so
// tests can substitute a recording fake without pulling in the real
// channel plumbing.
type Sink interface {
	Enqueue(ctx context.Context, qd QueuedDiff) error
}

// Queue is the bounded MPSC diff queue of spec §5: "capacity e.g. 1024
// ... multi-producer, single-consumer. Producers apply backpressure by
// awaiting queue space; they never drop." It is a thin wrapper over a
// buffered channel — the teacher's `diff.Syncer` used an unbounded
// `eventChan`; this repo bounds it per spec and blocks on Enqueue instead
// of growing without limit.
type Queue struct {
	ch chan QueuedDiff
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan QueuedDiff, capacity)}
}

// Enqueue blocks until there is room in the queue or ctx is cancelled.
// Never drops a diff silently.
func (q *Queue) Enqueue(ctx context.Context, qd QueuedDiff) error {
	select {
	case q.ch <- qd:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", qd.ID, ctx.Err())
	}
}

// Chan exposes the receive side for the consumer's batch-drain loop.
func (q *Queue) Chan() <-chan QueuedDiff {
	return q.ch
}

// Close signals producers are done; callers must ensure no further
// Enqueue calls race with Close. Neither the Scheduler nor the Consumer
// calls Close.
func (q *Queue) Close() {
	close(q.ch)
}
