package upstream

import (
	"context"

	"github.com/arlyon/linear-motion/pkg/adapter"
	"github.com/arlyon/linear-motion/pkg/canonical"
)

// compile-time assertion that Adapter satisfies the generic C3 contract.
var _ adapter.Adapter[Lens, LensDiff] = (*Adapter)(nil)

// Lens is Upstream's system-specific projection of a canonical task. Per
// the field propagation policy table (spec §4.1), the engine only ever
// writes Upstream's label set — every other field is Upstream-
// authoritative and a diff sourced from Downstream is dropped before it
// reaches here (canonical.FilterNonAuthoritative upstream of Project).
// The lens is therefore deliberately narrow: it is not a full mirror of
// Task the way Downstream's lens is.
type Lens struct {
	IssueID string
	Labels  []string
}

// LensDiff is the set of label mutations Apply must perform.
type LensDiff struct {
	IssueID     string
	AddLabels   []string
	RemoveLabels []string
}

// Adapter is the concrete C3 Adapter for Upstream.
type Adapter struct {
	Client Client
	// CompletedLabel is the configured "motioned" label name (spec §6
	// completed_upstream_label) added when Downstream completion is
	// observed.
	CompletedLabel string
	// Filter selects the startup backfill query (spec §4.4).
	Filter BackfillFilter
	// Webhooks is fed by the out-of-scope HTTP receiver, which parses and
	// authenticates the raw payload (webhook.go) and hands this adapter
	// the resulting Delivery.
	Webhooks <-chan Delivery
}

// Project transforms a canonical task into Upstream's lens. Pure; the
// task's upstream id is carried as IssueID so Apply can address the
// mutation without a second lookup.
func (a *Adapter) Project(_ context.Context, task canonical.Task) (Lens, error) {
	labels := append([]string(nil), task.Labels...)
	if task.Status == canonical.StatusArchivedInDownstream {
		labels = canonical.AddLabel(labels, a.CompletedLabel)
	}
	return Lens{IssueID: task.UpstreamID, Labels: labels}, nil
}

// LensDiff computes the label add/remove set between two lenses.
func (a *Adapter) LensDiff(before, after Lens) LensDiff {
	d := LensDiff{IssueID: after.IssueID}
	beforeSet := make(map[string]bool, len(before.Labels))
	for _, l := range before.Labels {
		beforeSet[l] = true
	}
	afterSet := make(map[string]bool, len(after.Labels))
	for _, l := range after.Labels {
		afterSet[l] = true
	}
	for _, l := range after.Labels {
		if !beforeSet[l] {
			d.AddLabels = append(d.AddLabels, l)
		}
	}
	for _, l := range before.Labels {
		if !afterSet[l] {
			d.RemoveLabels = append(d.RemoveLabels, l)
		}
	}
	return d
}

// IsEmpty reports whether d carries no label mutations.
func (a *Adapter) IsEmpty(d LensDiff) bool {
	return len(d.AddLabels) == 0 && len(d.RemoveLabels) == 0
}

// Apply performs the Upstream label mutations. handle is unused (labels
// address by IssueID, already carried on d); Upstream never "creates" via
// this adapter, since Upstream is the source of truth for task existence.
// Duplicate-label errors from Client.AddLabel are the concrete Client's
// responsibility to treat as success (spec §6), since only the concrete
// Client knows the wire-level error shape; Apply returns any error
// AddLabel reports.
func (a *Adapter) Apply(ctx context.Context, d LensDiff, _ *string) (string, error) {
	for _, l := range d.AddLabels {
		if err := a.Client.AddLabel(ctx, d.IssueID, l); err != nil {
			return "", err
		}
	}
	for _, l := range d.RemoveLabels {
		if err := a.Client.RemoveLabel(ctx, d.IssueID, l); err != nil {
			return "", err
		}
	}
	return d.IssueID, nil
}

// Delete is a no-op: the engine never deletes Upstream issues (Upstream
// is the source of truth for existence; Terminal absorption only deletes
// the Downstream mirror, spec §4.5).
func (a *Adapter) Delete(context.Context, string) error {
	return nil
}
