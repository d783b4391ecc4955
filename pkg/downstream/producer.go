package downstream

import (
	"context"
	"fmt"
	"time"

	"github.com/arlyon/linear-motion/pkg/canonical"
	"github.com/arlyon/linear-motion/pkg/engine"
	"github.com/arlyon/linear-motion/pkg/store"
)

// Producer is the Downstream half of C4 (spec §4.4): a poll loop that
// detects archived/completed tasks and enqueues a narrow status-only
// diff. It is distinct from Adapter (C3): Adapter knows how to project
// and mutate Downstream; Producer knows how to turn Downstream completion
// signals into diffs.
type Producer struct {
	Adapter *Adapter
	Store   *store.Store
	Sink    engine.Sink
}

// Run drives the Adapter's poll sequence until ctx is cancelled, and then
// returns nil.
func (p *Producer) Run(ctx context.Context) error {
	events, err := p.Adapter.ProduceEvents(ctx)
	if err != nil {
		return fmt.Errorf("starting downstream producer: %w", err)
	}

	for event := range events {
		if pf, ok := event.Payload.(pollFailure); ok {
			return fmt.Errorf("downstream poll: %w", pf.err)
		}
		task, ok := event.Payload.(PollTask)
		if !ok {
			return fmt.Errorf("downstream producer: unexpected payload %T", event.Payload)
		}
		if err := p.handlePollTask(ctx, task); err != nil {
			return fmt.Errorf("downstream poll task %s: %w", task.ID, err)
		}
	}
	return nil
}

// handlePollTask implements spec §4.4 downstream producer steps 1-3.
func (p *Producer) handlePollTask(ctx context.Context, task PollTask) error {
	if !IsArchived(task) {
		return nil
	}

	id, before, err := p.findByDownstreamID(task.ID)
	if err != nil {
		return fmt.Errorf("resolving downstream id %s: %w", task.ID, err)
	}
	if id == "" {
		// No canonical row mirrors this downstream task (e.g. it was
		// created outside the sync, or already reconciled away); nothing
		// to propagate.
		return nil
	}

	diff := canonical.TaskDiff{
		Status:          canonical.Some(canonical.StatusArchivedInDownstream),
		SourceSystem:    canonical.SystemDownstream,
		SourceTimestamp: time.Now().UTC(),
	}

	// Diff against current canonical status only: if already
	// ArchivedInDownstream (or Terminal, which would already have deleted
	// the row), there is nothing new to enqueue (P2: idempotent
	// re-delivery of the same observation).
	if before.Status == canonical.StatusArchivedInDownstream {
		return nil
	}

	return p.Sink.Enqueue(ctx, engine.QueuedDiff{ID: id, Diff: diff})
}

// findByDownstreamID resolves a canonical id from a Downstream handle.
// The store only maintains an upstream_id secondary index (spec §4.2);
// here the full store is scanned, which is acceptable given the low poll
// cadence and typical row counts of a personal sync daemon.
func (p *Producer) findByDownstreamID(downstreamID string) (canonical.ID, canonical.Task, error) {
	tasks, err := p.Store.All()
	if err != nil {
		return "", canonical.Task{}, err
	}
	for _, t := range tasks {
		if v, ok := t.DownstreamID.Get(); ok && v == downstreamID {
			return t.ID, t, nil
		}
	}
	return "", canonical.Task{}, nil
}
