package canonical

import "time"

// TaskDiff is structurally the same shape as Task, with every field
// wrapped as present/absent (spec §3: "CanonicalTaskDiff"). It additionally
// carries the provenance needed by merge() and the consumer's adapter
// selection: SourceSystem and SourceTimestamp.
type TaskDiff struct {
	UpstreamID     Field[string]
	DownstreamID   Field[string]
	Title          Field[string]
	Description    Field[string]
	Status         Field[Status]
	EstimatePoints Field[float64]
	DueDate        Field[time.Time]
	AssigneeRef    Field[string]
	Labels         Field[[]string]
	EngineMarker   Field[string]

	SourceSystem    System
	SourceTimestamp time.Time
}

// Diff computes the per-field structural difference between before and
// after: a field is present in the result iff it changed (spec §4.1
// `diff`). The result's SourceSystem is preserved from after, matching
// the spec's "Preserves source_system of the after snapshot."
func Diff(before, after Task) TaskDiff {
	var d TaskDiff

	if before.UpstreamID != after.UpstreamID {
		d.UpstreamID = Some(after.UpstreamID)
	}
	if !fieldEqualString(before.DownstreamID, after.DownstreamID) {
		d.DownstreamID = after.DownstreamID
	}
	if before.Title != after.Title {
		d.Title = Some(after.Title)
	}
	if !fieldEqualString(before.Description, after.Description) {
		d.Description = after.Description
	}
	if before.Status != after.Status {
		d.Status = Some(after.Status)
	}
	if !fieldEqualFloat(before.EstimatePoints, after.EstimatePoints) {
		d.EstimatePoints = after.EstimatePoints
	}
	if !fieldEqualTime(before.DueDate, after.DueDate) {
		d.DueDate = after.DueDate
	}
	if !fieldEqualString(before.AssigneeRef, after.AssigneeRef) {
		d.AssigneeRef = after.AssigneeRef
	}
	if !LabelsEqual(before.Labels, after.Labels) {
		d.Labels = Some(CanonicalizeLabels(after.Labels))
	}
	if !fieldEqualString(before.EngineMarker, after.EngineMarker) {
		d.EngineMarker = after.EngineMarker
	}

	d.SourceSystem = after.LastSeenSource
	return d
}

// IsEmpty reports whether every structural field of d is absent (spec
// §4.1 `is_empty`). Empty diffs are never enqueued, never applied.
func (d TaskDiff) IsEmpty() bool {
	return !d.UpstreamID.Present &&
		!d.DownstreamID.Present &&
		!d.Title.Present &&
		!d.Description.Present &&
		!d.Status.Present &&
		!d.EstimatePoints.Present &&
		!d.DueDate.Present &&
		!d.AssigneeRef.Present &&
		!d.Labels.Present &&
		!d.EngineMarker.Present
}

// IsTerminal reports whether d carries a Terminal status transition.
func (d TaskDiff) IsTerminal() bool {
	return d.Status.Present && d.Status.Value == StatusTerminal
}

func fieldEqualString(a, b Field[string]) bool {
	return a.Equal(b, func(x, y string) bool { return x == y })
}

func fieldEqualFloat(a, b Field[float64]) bool {
	return a.Equal(b, func(x, y float64) bool { return x == y })
}

func fieldEqualTime(a, b Field[time.Time]) bool {
	return a.Equal(b, func(x, y time.Time) bool { return x.Equal(y) })
}
