package canonical

// Apply performs a field-wise overwrite of every present field in d onto
// t, bumps Version, and records LastSeenSource (spec §4.1 `apply`).
//
// Apply is intentionally generic: it does not enforce the field
// propagation policy table (spec §4.1) itself. That table governs which
// direction a field is allowed to *propagate to the opposite system* in
// the consumer's diff-the-projection step (pkg/engine), not whether a
// diff may be folded into canonical state. In practice the Downstream
// producer only ever emits diffs carrying Status=ArchivedInDownstream
// (spec §4.4), so invariant 5 ("Downstream authoritative for
// ArchivedInDownstream only") holds by producer discipline; FilterNon-
// Authoritative below is a defensive backstop used by the consumer
// before every Apply regardless.
func Apply(t Task, d TaskDiff) Task {
	out := t.Clone()

	if v, ok := d.UpstreamID.Get(); ok {
		out.UpstreamID = v
	}
	if v, ok := d.DownstreamID.Get(); ok {
		out.DownstreamID = Some(v)
	}
	if v, ok := d.Title.Get(); ok {
		out.Title = v
	}
	if v, ok := d.Description.Get(); ok {
		out.Description = Some(v)
	}
	if v, ok := d.Status.Get(); ok {
		out.Status = v
	}
	if v, ok := d.EstimatePoints.Get(); ok {
		out.EstimatePoints = Some(v)
	}
	if v, ok := d.DueDate.Get(); ok {
		out.DueDate = Some(v)
	}
	if v, ok := d.AssigneeRef.Get(); ok {
		out.AssigneeRef = Some(v)
	}
	if v, ok := d.Labels.Get(); ok {
		out.Labels = v
	}
	if v, ok := d.EngineMarker.Get(); ok {
		out.EngineMarker = Some(v)
	}

	out.LastSeenSource = d.SourceSystem
	out.Version++
	return out
}

// downstreamAuthoritativeFields are the only fields a Downstream-sourced
// diff is allowed to carry onto canonical state (spec §4.1 table: "status
// = ArchivedInDownstream ... Authoritative source: Downstream").
//
// FilterNonAuthoritative clears every other field from a Downstream-
// sourced diff before it reaches Apply, so a misbehaving or future
// Downstream producer emission can never silently override
// Upstream-owned fields (invariant 5).
func FilterNonAuthoritative(d TaskDiff) TaskDiff {
	if d.SourceSystem != SystemDownstream {
		return d
	}
	filtered := TaskDiff{
		SourceSystem:    d.SourceSystem,
		SourceTimestamp: d.SourceTimestamp,
		EngineMarker:    d.EngineMarker,
	}
	if d.Status.Present && d.Status.Value == StatusArchivedInDownstream {
		filtered.Status = d.Status
	}
	return filtered
}
