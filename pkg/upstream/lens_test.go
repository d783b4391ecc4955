package upstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

type recordingClient struct {
	added   []string
	removed []string
}

func (c *recordingClient) ListAssignedOpenIssues(context.Context, BackfillFilter) ([]Issue, error) {
	return nil, nil
}

func (c *recordingClient) AddLabel(_ context.Context, _, label string) error {
	c.added = append(c.added, label)
	return nil
}

func (c *recordingClient) RemoveLabel(_ context.Context, _, label string) error {
	c.removed = append(c.removed, label)
	return nil
}

func TestAdapterProjectAddsCompletedLabelOnlyWhenArchived(t *testing.T) {
	a := &Adapter{CompletedLabel: "motioned"}
	task := canonical.Task{UpstreamID: "ENG-42", Status: canonical.StatusActive, Labels: []string{"bug"}}

	lens, err := a.Project(context.Background(), task)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug"}, lens.Labels)

	task.Status = canonical.StatusArchivedInDownstream
	lens, err = a.Project(context.Background(), task)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug", "motioned"}, lens.Labels)
}

// TestAdapterRoundTripLawIsEmpty covers spec §8's round-trip law:
// "A.is_empty(A.lens_diff(A.project(t), A.project(t)))" is true.
func TestAdapterRoundTripLawIsEmpty(t *testing.T) {
	a := &Adapter{CompletedLabel: "motioned"}
	task := canonical.Task{UpstreamID: "ENG-42", Labels: []string{"bug", "p1"}}

	lens, err := a.Project(context.Background(), task)
	require.NoError(t, err)
	d := a.LensDiff(lens, lens)
	assert.True(t, a.IsEmpty(d))
}

func TestAdapterApplyAddsAndRemovesLabels(t *testing.T) {
	client := &recordingClient{}
	a := &Adapter{Client: client, CompletedLabel: "motioned"}

	before := Lens{IssueID: "ENG-42", Labels: []string{"bug"}}
	after := Lens{IssueID: "ENG-42", Labels: []string{"p1"}}

	d := a.LensDiff(before, after)
	require.False(t, a.IsEmpty(d))

	handle, err := a.Apply(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, "ENG-42", handle)
	assert.Equal(t, []string{"p1"}, client.added)
	assert.Equal(t, []string{"bug"}, client.removed)
}
