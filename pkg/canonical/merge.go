package canonical

import "sort"

// Merge combines two diffs right-biased, except that the diff with the
// later SourceTimestamp wins ties field-by-field (spec §4.1 `merge`):
// "field-wise right-biased combine, except: if a.source_timestamp >
// b.source_timestamp, swap roles." The result's SourceSystem is the
// winner's.
//
// Merge is associative and commutative with respect to timestamp
// ordering (P3): callers that fold a group of diffs for the same id
// should sort by SourceTimestamp first for a result independent of fold
// order, though Merge itself re-derives the correct winner regardless of
// argument order by comparing timestamps directly.
func Merge(a, b TaskDiff) TaskDiff {
	if a.SourceTimestamp.After(b.SourceTimestamp) {
		a, b = b, a
	}
	// b is now the later (or equal-and-right) diff; right-biased combine.
	out := a
	mergeField(&out.UpstreamID, b.UpstreamID)
	mergeField(&out.DownstreamID, b.DownstreamID)
	mergeField(&out.Title, b.Title)
	mergeField(&out.Description, b.Description)
	mergeField(&out.Status, b.Status)
	mergeField(&out.EstimatePoints, b.EstimatePoints)
	mergeField(&out.DueDate, b.DueDate)
	mergeField(&out.AssigneeRef, b.AssigneeRef)
	mergeField(&out.Labels, b.Labels)
	mergeField(&out.EngineMarker, b.EngineMarker)

	out.SourceSystem = b.SourceSystem
	out.SourceTimestamp = b.SourceTimestamp
	return out
}

func mergeField[T any](into *Field[T], from Field[T]) {
	if from.Present {
		*into = from
	}
}

// MergeAll folds a batch of diffs for a single entity id into one diff,
// in timestamp order, as used by the consumer's per-entity grouping step
// (spec §4.5 step 2).
func MergeAll(diffs []TaskDiff) TaskDiff {
	if len(diffs) == 0 {
		return TaskDiff{}
	}
	sorted := append([]TaskDiff(nil), diffs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourceTimestamp.Before(sorted[j].SourceTimestamp)
	})
	merged := sorted[0]
	for _, d := range sorted[1:] {
		merged = Merge(merged, d)
	}
	return merged
}
