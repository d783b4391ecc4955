package canonical

import (
	"strings"

	"github.com/ettle/strcase"
	"github.com/samber/lo"
)

// CanonicalizeLabel normalizes a raw label name from either system into
// the canonical kebab-case form stored on Task.Labels (spec §3:
// "Canonicalized label names").
func CanonicalizeLabel(raw string) string {
	return strcase.ToKebab(strings.TrimSpace(raw))
}

// CanonicalizeLabels canonicalizes and de-duplicates a raw label set,
// dropping empties, and returns them sorted for deterministic diffing.
func CanonicalizeLabels(raw []string) []string {
	canon := lo.FilterMap(raw, func(r string, _ int) (string, bool) {
		c := CanonicalizeLabel(r)
		return c, c != ""
	})
	return lo.Uniq(sortedStrings(canon))
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// LabelsEqual reports whether two canonicalized label sets are the same
// set, independent of order.
func LabelsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := CanonicalizeLabels(a), CanonicalizeLabels(b)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// AddLabel returns labels with name added (canonicalized, deduped).
func AddLabel(labels []string, name string) []string {
	return CanonicalizeLabels(append(append([]string(nil), labels...), name))
}

// RemoveLabel returns labels with name removed.
func RemoveLabel(labels []string, name string) []string {
	want := CanonicalizeLabel(name)
	return lo.Filter(CanonicalizeLabels(labels), func(l string, _ int) bool {
		return l != want
	})
}
