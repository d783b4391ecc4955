package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/arlyon/linear-motion/pkg/canonical"
	"github.com/arlyon/linear-motion/pkg/engine"
	"github.com/arlyon/linear-motion/pkg/store"
)

// Producer is the Upstream half of C4 (spec §4.4): it consumes the
// Adapter's lazy ProducerEvent sequence (backfill, then live webhooks)
// and turns each into a canonical diff against stored state, enqueuing
// non-empty diffs. It is distinct from Adapter (C3): Adapter knows how to
// project and mutate Upstream; Producer knows how to turn Upstream events
// into diffs.
type Producer struct {
	Adapter *Adapter
	Store   *store.Store
	Sink    engine.Sink
}

// Run drives the Adapter's event sequence until ctx is cancelled or the
// sequence ends, and returns nil in either case. It is one of the
// long-lived tasks the scheduler (pkg/engine.Scheduler) coordinates (spec
// §5).
func (p *Producer) Run(ctx context.Context) error {
	events, err := p.Adapter.ProduceEvents(ctx)
	if err != nil {
		return fmt.Errorf("starting upstream producer: %w", err)
	}

	for event := range events {
		if bf, ok := event.Payload.(backfillFailure); ok {
			return fmt.Errorf("upstream backfill: %w", bf.err)
		}
		delivery, ok := event.Payload.(Delivery)
		if !ok {
			return fmt.Errorf("upstream producer: unexpected payload %T", event.Payload)
		}
		if err := p.handleDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("upstream webhook %s: %w", delivery.Issue.ID, err)
		}
	}
	return nil
}

// handleDelivery implements spec §4.4 steps 1-6.
func (p *Producer) handleDelivery(ctx context.Context, delivery Delivery) error {
	issue := delivery.Issue

	// Step 2: resolve canonical id, minting a fresh one if unseen.
	before, err := p.Store.GetByUpstreamID(issue.ID)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", issue.ID, err)
	}
	var id canonical.ID
	var beforeTask canonical.Task
	if before == nil {
		id = canonical.NewID()
		beforeTask = canonical.Zero(id)
	} else {
		id = before.ID
		beforeTask = *before
	}

	// Echo-update suppression (design note 1): an inbound event carrying
	// the marker this engine itself wrote on the last outbound apply is
	// dropped rather than diffed.
	if delivery.EngineTag != "" {
		if v, ok := beforeTask.EngineMarker.Get(); ok && v == delivery.EngineTag {
			return nil
		}
	}

	if delivery.Action == ActionDelete {
		issue.StateType = "deleted"
	}

	// Step 3: build the "after" snapshot.
	after := mapIssueToTask(id, issue, beforeTask)

	// An ArchivedInDownstream task stays archived while the completed
	// label is still on the issue; removing the label re-opens it.
	if beforeTask.Status == canonical.StatusArchivedInDownstream && p.Adapter != nil && after.HasLabel(p.Adapter.CompletedLabel) {
		after.Status = canonical.StatusArchivedInDownstream
	}

	// Step 5: terminal workflow states force status=Terminal regardless
	// of other field changes.
	if IsTerminal(issue.StateType) {
		after.Status = canonical.StatusTerminal
	}

	diff := canonical.Diff(beforeTask, after)
	if diff.IsEmpty() {
		return nil
	}
	diff.SourceTimestamp = issue.UpdatedAt

	return p.Sink.Enqueue(ctx, engine.QueuedDiff{ID: id, Diff: diff})
}

func mapIssueToTask(id canonical.ID, issue Issue, before canonical.Task) canonical.Task {
	after := before.Clone()
	after.ID = id
	after.UpstreamID = issue.ID
	after.Title = issue.Title
	after.Description = canonical.Some(issue.Description)
	after.Status = canonical.StatusActive
	if issue.Estimate != nil {
		after.EstimatePoints = canonical.Some(*issue.Estimate)
	} else {
		after.EstimatePoints = canonical.None[float64]()
	}
	if issue.DueDate != nil {
		after.DueDate = canonical.Some(*issue.DueDate)
	} else {
		after.DueDate = canonical.None[time.Time]()
	}
	if issue.AssigneeRef != "" {
		after.AssigneeRef = canonical.Some(issue.AssigneeRef)
	} else {
		after.AssigneeRef = canonical.None[string]()
	}
	after.Labels = canonical.CanonicalizeLabels(issue.Labels)
	after.LastSeenSource = canonical.SystemUpstream
	return after
}
