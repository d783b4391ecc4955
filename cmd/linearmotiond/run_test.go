package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlyon/linear-motion/pkg/config"
	"github.com/arlyon/linear-motion/pkg/downstream"
	"github.com/arlyon/linear-motion/pkg/logging"
	"github.com/arlyon/linear-motion/pkg/upstream"
)

type fakeUpstreamClient struct{}

func (fakeUpstreamClient) ListAssignedOpenIssues(ctx context.Context, filter upstream.BackfillFilter) ([]upstream.Issue, error) {
	return nil, nil
}
func (fakeUpstreamClient) AddLabel(ctx context.Context, issueID, label string) error    { return nil }
func (fakeUpstreamClient) RemoveLabel(ctx context.Context, issueID, label string) error { return nil }

type fakeDownstreamClient struct{}

func (fakeDownstreamClient) Create(ctx context.Context, task downstream.Task) (string, error) {
	return "handle", nil
}
func (fakeDownstreamClient) Update(ctx context.Context, handle string, patch downstream.Patch) error {
	return nil
}
func (fakeDownstreamClient) Delete(ctx context.Context, handle string) error { return nil }
func (fakeDownstreamClient) Poll(ctx context.Context) ([]downstream.PollTask, error) {
	return nil, nil
}

func TestRunWiresAndStopsOnCancel(t *testing.T) {
	cfg, err := config.WithDefaults(config.Config{PollIntervalSeconds: 1})
	require.NoError(t, err)

	deps := Deps{
		UpstreamClient:   fakeUpstreamClient{},
		DownstreamClient: fakeDownstreamClient{},
		Webhooks:         make(chan upstream.Delivery),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	storePath := filepath.Join(t.TempDir(), "state.db")
	log := logging.New()

	// With no real upstream/downstream activity, every task cleanly
	// drains and Run returns nil once ctx expires — the graceful
	// shutdown contract (spec §5: "the consumer drains to empty ...
	// then exits"), not an error.
	err = Run(ctx, cfg, deps, storePath, log)
	require.NoError(t, err)
}
