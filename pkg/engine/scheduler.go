package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a long-lived scheduler-managed unit of work: a webhook
// producer, a poll producer, or the consumer (spec §5: "three long-lived
// tasks"). Run must return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Scheduler coordinates the producer/consumer task lifecycle with
// golang.org/x/sync/errgroup, the idiomatic Go replacement for the
// teacher's manual sync.WaitGroup/stopChan plumbing in diff.Syncer.Run
// (spec §4.6), generalized from one-shot diff runs to long-running tasks.
// If any task returns a non-nil error, ctx is cancelled for the rest and
// the first error is returned from Run.
type Scheduler struct {
	tasks []Task
}

// NewScheduler builds a scheduler over the given tasks. Order is
// insignificant: all tasks start concurrently.
func NewScheduler(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Run starts every task and blocks until ctx is cancelled (or a task
// errors) and every task has returned — the "graceful shutdown" half of
// spec §5: producers stop enqueueing, the consumer drains to empty and
// flushes the store, then Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range s.tasks {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}
	return g.Wait()
}
