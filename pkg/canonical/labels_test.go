package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeLabelsDedupesAndNormalizes(t *testing.T) {
	got := CanonicalizeLabels([]string{"Bug", " bug", "P1", "p1", ""})
	assert.Equal(t, []string{"bug", "p1"}, got)
}

func TestLabelsEqualIgnoresOrder(t *testing.T) {
	assert.True(t, LabelsEqual([]string{"a", "b"}, []string{"B", "A"}))
	assert.False(t, LabelsEqual([]string{"a"}, []string{"a", "b"}))
}

func TestAddAndRemoveLabel(t *testing.T) {
	labels := CanonicalizeLabels([]string{"bug"})
	labels = AddLabel(labels, "Motioned")
	assert.True(t, LabelsEqual(labels, []string{"bug", "motioned"}))

	labels = RemoveLabel(labels, "motioned")
	assert.True(t, LabelsEqual(labels, []string{"bug"}))
}
