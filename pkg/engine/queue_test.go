package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

func TestQueueEnqueueAndDrain(t *testing.T) {
	q := NewQueue(2)
	id := canonical.NewID()
	require.NoError(t, q.Enqueue(context.Background(), QueuedDiff{ID: id}))

	qd := <-q.Chan()
	require.Equal(t, id, qd.ID)
}

func TestQueueEnqueueBlocksWhenFullAndAppliesBackpressure(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), QueuedDiff{ID: canonical.NewID()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, QueuedDiff{ID: canonical.NewID()})
	require.Error(t, err, "a full queue must block (never drop) until space or ctx cancellation")
}

func TestQueueEnqueueUnblocksOnceSpaceFreed(t *testing.T) {
	q := NewQueue(1)
	first := canonical.NewID()
	second := canonical.NewID()
	require.NoError(t, q.Enqueue(context.Background(), QueuedDiff{ID: first}))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(context.Background(), QueuedDiff{ID: second}) }()

	qd := <-q.Chan()
	require.Equal(t, first, qd.ID)

	require.NoError(t, <-done)
	qd2 := <-q.Chan()
	require.Equal(t, second, qd2.ID)
}
