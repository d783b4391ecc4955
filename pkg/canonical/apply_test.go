package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyIdempotent covers P1: applying the same diff to the same
// canonical state twice yields the same result as applying it once,
// except for Version, which is bookkeeping for apply() itself and is
// expected to increment on every call (spec §4.1: "bumps version").
func TestApplyIdempotent(t *testing.T) {
	base := Zero(NewID())
	d := TaskDiff{Title: Some("Fix login"), SourceSystem: SystemUpstream, SourceTimestamp: ts(0)}

	once := Apply(base, d)
	twice := Apply(once, d)

	assert.Equal(t, once.Title, twice.Title)
	assert.Equal(t, once.Status, twice.Status)
	assert.Equal(t, once.Labels, twice.Labels)
}

// TestApplyVersionMonotonic covers P5.
func TestApplyVersionMonotonic(t *testing.T) {
	base := Zero(NewID())
	require.EqualValues(t, 0, base.Version)

	v1 := Apply(base, TaskDiff{Title: Some("a"), SourceTimestamp: ts(0)})
	assert.EqualValues(t, 1, v1.Version)

	v2 := Apply(v1, TaskDiff{Title: Some("b"), SourceTimestamp: ts(1)})
	assert.EqualValues(t, 2, v2.Version)
}

func TestFilterNonAuthoritativeDropsUpstreamOwnedFields(t *testing.T) {
	d := TaskDiff{
		Title:           Some("sneaky downstream title edit"),
		Status:          Some(StatusArchivedInDownstream),
		SourceSystem:    SystemDownstream,
		SourceTimestamp: ts(0),
	}

	filtered := FilterNonAuthoritative(d)
	assert.False(t, filtered.Title.Present, "downstream diffs must never carry title")
	status, ok := filtered.Status.Get()
	require.True(t, ok)
	assert.Equal(t, StatusArchivedInDownstream, status)
}

func TestFilterNonAuthoritativeDropsDownstreamStatusChangeToOtherValue(t *testing.T) {
	d := TaskDiff{
		Status:          Some(StatusTerminal),
		SourceSystem:    SystemDownstream,
		SourceTimestamp: ts(0),
	}
	filtered := FilterNonAuthoritative(d)
	assert.False(t, filtered.Status.Present, "downstream may only assert ArchivedInDownstream")
}

func TestFilterNonAuthoritativePassesUpstreamDiffsUnchanged(t *testing.T) {
	d := TaskDiff{
		Title:           Some("Fix login"),
		SourceSystem:    SystemUpstream,
		SourceTimestamp: ts(0),
	}
	filtered := FilterNonAuthoritative(d)
	assert.Equal(t, d, filtered)
}
