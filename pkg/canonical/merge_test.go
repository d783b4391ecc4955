package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(offsetSeconds int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offsetSeconds) * time.Second)
}

func TestMergeLaterTimestampWins(t *testing.T) {
	a := TaskDiff{Title: Some("from a"), SourceSystem: SystemUpstream, SourceTimestamp: ts(0)}
	b := TaskDiff{Title: Some("from b"), SourceSystem: SystemDownstream, SourceTimestamp: ts(10)}

	m := Merge(a, b)
	title, ok := m.Title.Get()
	require.True(t, ok)
	assert.Equal(t, "from b", title)
	assert.Equal(t, SystemDownstream, m.SourceSystem)

	// Order shouldn't matter: Merge re-derives the winner by timestamp.
	m2 := Merge(b, a)
	title2, _ := m2.Title.Get()
	assert.Equal(t, title, title2)
}

func TestMergeFieldWiseRightBiasedAfterOrdering(t *testing.T) {
	older := TaskDiff{
		Title:          Some("old title"),
		EstimatePoints: Some(2.0),
		SourceTimestamp: ts(0),
	}
	newer := TaskDiff{
		Title:           Some("new title"),
		SourceTimestamp: ts(5),
	}

	m := Merge(older, newer)
	title, _ := m.Title.Get()
	assert.Equal(t, "new title", title)

	// newer didn't touch EstimatePoints, so older's value survives.
	est, ok := m.EstimatePoints.Get()
	require.True(t, ok)
	assert.Equal(t, 2.0, est)
}

// TestMergeAssociativeUnderTimestampOrder covers P3: for diffs sorted by
// source_timestamp, merge(merge(a,b),c) == merge(a,merge(b,c)).
func TestMergeAssociativeUnderTimestampOrder(t *testing.T) {
	a := TaskDiff{Title: Some("a"), SourceTimestamp: ts(0), SourceSystem: SystemUpstream}
	b := TaskDiff{Description: Some("b"), SourceTimestamp: ts(5), SourceSystem: SystemUpstream}
	c := TaskDiff{EstimatePoints: Some(3.0), SourceTimestamp: ts(10), SourceSystem: SystemDownstream}

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))

	assert.Equal(t, left.Title, right.Title)
	assert.Equal(t, left.Description, right.Description)
	assert.Equal(t, left.EstimatePoints, right.EstimatePoints)
	assert.Equal(t, left.SourceSystem, right.SourceSystem)
}

func TestMergeAllEmptyYieldsZeroValue(t *testing.T) {
	m := MergeAll(nil)
	assert.True(t, m.IsEmpty())
}

func TestMergeAllFoldsBatch(t *testing.T) {
	diffs := []TaskDiff{
		{Title: Some("v1"), SourceTimestamp: ts(0)},
		{Title: Some("v2"), SourceTimestamp: ts(1)},
		{Title: Some("v3"), SourceTimestamp: ts(2)},
	}
	m := MergeAll(diffs)
	title, ok := m.Title.Get()
	require.True(t, ok)
	assert.Equal(t, "v3", title)
}
