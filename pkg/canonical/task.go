// Package canonical defines the platform-agnostic task entity shared by
// every other package in this repository, and the pure diff/merge/apply
// algebra over it. Nothing in this package performs I/O.
package canonical

import (
	"time"

	"github.com/google/uuid"
)

// System identifies which external system produced a diff or last touched
// a task.
type System string

const (
	// SystemUpstream is the issue tracker (Linear-shaped).
	SystemUpstream System = "upstream"
	// SystemDownstream is the calendar/task manager (Motion-shaped).
	SystemDownstream System = "downstream"
)

// Status is the tagged variant described in spec §3. Terminal is never a
// resting state: it exists only on an in-flight TaskDiff, long enough for
// the consumer to delete the row it would otherwise apply to.
type Status string

const (
	StatusActive                Status = "active"
	StatusArchivedInDownstream  Status = "archived_in_downstream"
	StatusTerminal              Status = "terminal"
)

// ID is an opaque, stable identifier minted the first time a task is
// observed. IDs are never reused, even after the row they named is
// deleted (spec §3 lifecycle).
type ID string

// NewID mints a fresh canonical ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Task is the central entity: the same ID represents one logical item
// across both Upstream and Downstream.
type Task struct {
	ID             ID
	UpstreamID     string
	DownstreamID   Field[string]
	Title          string
	Description    Field[string]
	Status         Status
	EstimatePoints Field[float64]
	DueDate        Field[time.Time]
	AssigneeRef    Field[string]
	Labels         []string
	LastSeenSource System
	Version        uint64
	// EngineMarker is the echo-suppression marker (design note 1): the
	// Upstream producer drops an inbound delivery whose engine tag equals
	// it. No adapter in this repository writes a marker on outbound
	// applies, so it is only set when a diff or a stored row carries one.
	EngineMarker Field[string]
}

// Zero returns the empty task a brand-new canonical ID starts from: the
// "before" state used by diff() when a producer sees an unknown
// upstream_id (spec §4.4 step 4).
func Zero(id ID) Task {
	return Task{ID: id, Status: StatusActive}
}

// Clone performs a deep copy, since Labels is a slice.
func (t Task) Clone() Task {
	c := t
	if t.Labels != nil {
		c.Labels = append([]string(nil), t.Labels...)
	}
	return c
}

// HasLabel reports whether the canonicalized form of name is present.
func (t Task) HasLabel(name string) bool {
	want := CanonicalizeLabel(name)
	for _, l := range t.Labels {
		if l == want {
			return true
		}
	}
	return false
}
