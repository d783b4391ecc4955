package canonical

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEmptyWhenUnchanged(t *testing.T) {
	task := Task{ID: NewID(), UpstreamID: "ENG-42", Title: "Fix login"}
	d := Diff(task, task)
	assert.True(t, d.IsEmpty())
}

func TestDiffDetectsFieldChanges(t *testing.T) {
	before := Task{ID: NewID(), UpstreamID: "ENG-42", Title: "Fix login"}
	after := before.Clone()
	after.Title = "Fix login flow"
	after.EstimatePoints = Some(5.0)

	d := Diff(before, after)
	require.False(t, d.IsEmpty())

	title, ok := d.Title.Get()
	require.True(t, ok)
	assert.Equal(t, "Fix login flow", title)

	est, ok := d.EstimatePoints.Get()
	require.True(t, ok)
	assert.Equal(t, 5.0, est)

	// Absent fields must stay absent (spec §8: end-to-end scenario 2,
	// "title/due unchanged in payload").
	assert.False(t, d.DueDate.Present)
	assert.False(t, d.AssigneeRef.Present)
}

func TestDiffPreservesAfterSourceSystem(t *testing.T) {
	before := Zero(NewID())
	after := before.Clone()
	after.LastSeenSource = SystemDownstream

	d := Diff(before, after)
	assert.Equal(t, SystemDownstream, d.SourceSystem)
}

func TestIsTerminal(t *testing.T) {
	d := TaskDiff{Status: Some(StatusTerminal)}
	assert.True(t, d.IsTerminal())

	d2 := TaskDiff{Status: Some(StatusActive)}
	assert.False(t, d2.IsTerminal())
}

// TestApplyDefaultDiffRoundTrip covers the round-trip law in spec §8:
// "For every CanonicalTask t: apply(default, diff(default, t)) == t."
func TestApplyDefaultDiffRoundTrip(t *testing.T) {
	zero := Zero(NewID())
	want := Task{
		ID:             zero.ID,
		UpstreamID:     "ENG-42",
		Title:          "Fix login",
		Description:    Some("markdown body"),
		Status:         StatusActive,
		EstimatePoints: Some(2.0),
		DueDate:        Some(time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)),
		AssigneeRef:    Some("user-1"),
		Labels:         CanonicalizeLabels([]string{"Bug", "P1"}),
		LastSeenSource: SystemUpstream,
	}

	d := Diff(zero, want)
	got := Apply(zero, d)

	// Version is Apply's own bookkeeping, not part of the diffed content;
	// compare the rest structurally (LastSeenSource comes through as the
	// diff's SourceSystem).
	got.Version = 0
	want.Version = 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
