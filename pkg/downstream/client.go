// Package downstream is the Downstream (Motion-shaped) half of C4
// (producer) and C3 (concrete adapter), mirrored from pkg/upstream's
// split between pure mapping logic and an injected transport Client.
package downstream

import (
	"context"
	"time"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

// Task is the downstream task shape this package writes via Create/
// Update, and a PollTask is what the poll loop reads back (spec §6
// "Poll response: list of downstream tasks with at minimum {id, archived,
// completed, updated_at}").
type Task struct {
	CanonicalID  string // stored in a custom field as the idempotency key (spec §4.3, §6)
	Name         string
	Description  string
	DueDate      *time.Time
	DurationMins int
	AssigneeRef  string
}

// Patch is a sparse Downstream update payload: only present fields are
// written, so Update never clobbers a field the propagation step didn't
// change (spec §8 scenario 2: "title/due unchanged in payload (absent
// fields)").
type Patch struct {
	Name         canonical.Field[string]
	Description  canonical.Field[string]
	DueDate      canonical.Field[time.Time]
	DurationMins canonical.Field[int]
	AssigneeRef  canonical.Field[string]
}

// PollTask is one row of the poll response.
type PollTask struct {
	ID        string
	Archived  bool
	Completed bool
	UpdatedAt time.Time
}

// Client is the injected Downstream transport. The concrete
// implementation (HTTP against the real calendar/task manager) is
// supplied by the caller; this package only depends on this interface.
type Client interface {
	// Create makes a new downstream task, keyed for idempotency by
	// task.CanonicalID (spec §6: "create with canonical id stored in a
	// custom field"). Returns the new downstream handle.
	Create(ctx context.Context, task Task) (handle string, err error)

	// Update mutates an existing downstream task by handle, writing only
	// patch's present fields.
	Update(ctx context.Context, handle string, patch Patch) error

	// Delete removes a downstream task by handle. 404 is success (spec
	// §6) — the concrete client is responsible for that translation.
	Delete(ctx context.Context, handle string) error

	// Poll lists tasks whose archived/completed flag may have changed
	// since the last call (spec §4.4 downstream producer).
	Poll(ctx context.Context) ([]PollTask, error)
}

// IsArchived reports whether a polled task counts as "completed" for the
// purposes of the ArchivedInDownstream transition (spec §4.4: "each
// completed/archived downstream task").
func IsArchived(t PollTask) bool {
	return t.Archived || t.Completed
}
