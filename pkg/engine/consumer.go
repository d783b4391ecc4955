package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arlyon/linear-motion/pkg/adapter"
	"github.com/arlyon/linear-motion/pkg/canonical"
	"github.com/arlyon/linear-motion/pkg/deadletter"
	"github.com/arlyon/linear-motion/pkg/ratelimit"
	"github.com/arlyon/linear-motion/pkg/store"
)

const defaultMaxBatch = 32

// Consumer is the single C5 sync engine task (spec §4.5). It is
// parameterized over both adapters' lens/lens-diff type pairs so this
// package never imports the concrete pkg/upstream/pkg/downstream
// packages (which themselves import pkg/engine for Queue/Sink) — the
// Go rendering of design note 2's "fixed set of variant cases... the
// engine is parameterized once at construction over (UpstreamAdapter,
// DownstreamAdapter)".
type Consumer[LU, DU, LD, DD any] struct {
	Queue      *Queue
	Store      *store.Store
	DeadLetter *deadletter.Table

	Upstream   adapter.Adapter[LU, DU]
	Downstream adapter.Adapter[LD, DD]

	UpstreamLimiter   *ratelimit.Limiter
	DownstreamLimiter *ratelimit.Limiter

	// MaxBatch bounds how many queued diffs are folded into one apply per
	// tick (spec §4.5: "typical batch size 1-32"). Zero uses
	// defaultMaxBatch.
	MaxBatch int

	Log *logrus.Logger

	// retryQueue holds rate-limited diffs re-enqueued "at the head" (spec
	// §7 kind 2). A plain channel has no true head/tail priority; this
	// repo approximates "ahead of new work" by draining retryQueue before
	// Queue in every batch.
	retryQueue chan QueuedDiff
}

// NewConsumer wires a Consumer with its retry-requeue channel allocated.
func NewConsumer[LU, DU, LD, DD any](
	queue *Queue,
	st *store.Store,
	dl *deadletter.Table,
	up adapter.Adapter[LU, DU],
	down adapter.Adapter[LD, DD],
	upLimiter, downLimiter *ratelimit.Limiter,
	log *logrus.Logger,
) *Consumer[LU, DU, LD, DD] {
	return &Consumer[LU, DU, LD, DD]{
		Queue: queue, Store: st, DeadLetter: dl,
		Upstream: up, Downstream: down,
		UpstreamLimiter: upLimiter, DownstreamLimiter: downLimiter,
		Log:        log,
		retryQueue: make(chan QueuedDiff, 256),
	}
}

func (c *Consumer[LU, DU, LD, DD]) maxBatch() int {
	if c.MaxBatch > 0 {
		return c.MaxBatch
	}
	return defaultMaxBatch
}

// Run drives the batch-drain -> merge -> propagate loop until ctx is
// cancelled and the queue is drained (spec §5 shutdown: "the consumer
// drains to empty, completes the in-flight propagation, flushes the
// store, then exits").
func (c *Consumer[LU, DU, LD, DD]) Run(ctx context.Context) error {
	for {
		batch, ok := c.drainBatch(ctx)
		if !ok {
			return nil
		}
		if len(batch) == 0 {
			continue
		}
		if err := c.processBatch(ctx, batch); err != nil {
			var storeErr *StoreFailureError
			if errors.As(err, &storeErr) {
				return err // fatal, spec §7 kind 5
			}
			var authErr *AuthFailure
			if errors.As(err, &authErr) {
				return err // fatal for this consumer; scheduler decides restart policy
			}
			// Any other error for one entity must not stall the rest of
			// the batch or other sources (spec §7 "per-source
			// isolation"); processBatch already isolates per-id errors,
			// so reaching here means a genuinely unexpected failure.
			c.Log.WithError(err).Error("unexpected propagation error")
		}
		if ctx.Err() != nil && len(c.Queue.Chan()) == 0 && len(c.retryQueue) == 0 {
			return ctx.Err()
		}
	}
}

// drainBatch blocks for the first diff, then non-blockingly pulls up to
// MaxBatch-1 more (spec §4.5 step 1).
func (c *Consumer[LU, DU, LD, DD]) drainBatch(ctx context.Context) ([]QueuedDiff, bool) {
	var batch []QueuedDiff

	select {
	case qd, ok := <-c.retryQueue:
		if !ok {
			return nil, false
		}
		batch = append(batch, qd)
	case qd, ok := <-c.Queue.Chan():
		if !ok {
			return nil, false
		}
		batch = append(batch, qd)
	case <-ctx.Done():
		if len(c.retryQueue) == 0 && len(c.Queue.Chan()) == 0 {
			return nil, false
		}
	}

	for len(batch) < c.maxBatch() {
		select {
		case qd, ok := <-c.retryQueue:
			if !ok {
				return batch, true
			}
			batch = append(batch, qd)
		case qd, ok := <-c.Queue.Chan():
			if !ok {
				return batch, true
			}
			batch = append(batch, qd)
		default:
			return batch, true
		}
	}
	return batch, true
}

// processBatch implements spec §4.5 steps 2-3: group by id, merge each
// group, then propagate.
func (c *Consumer[LU, DU, LD, DD]) processBatch(ctx context.Context, batch []QueuedDiff) error {
	groups := make(map[canonical.ID][]canonical.TaskDiff)
	for _, qd := range batch {
		groups[qd.ID] = append(groups[qd.ID], qd.Diff)
	}

	for id, diffs := range groups {
		merged := canonical.MergeAll(diffs)
		if err := c.propagate(ctx, id, merged); err != nil {
			var rl *rateLimitedRetry
			if errors.As(err, &rl) {
				select {
				case c.retryQueue <- QueuedDiff{ID: id, Diff: merged}:
				case <-ctx.Done():
				}
				continue
			}
			var storeErr *StoreFailureError
			var authErr *AuthFailure
			if errors.As(err, &storeErr) || errors.As(err, &authErr) {
				return err
			}
			// Validation/unclassified: dead-letter and move on (spec §7
			// kind 3); per-entity failures never stall the batch.
			c.deadLetter(id, merged, err)
		}
	}
	return nil
}

func (c *Consumer[LU, DU, LD, DD]) deadLetter(id canonical.ID, d canonical.TaskDiff, cause error) {
	entry := deadletter.Entry{ID: id, Diff: d, Err: cause.Error(), Adapter: d.SourceSystem, FailedAt: time.Now().UTC()}
	if err := c.DeadLetter.Put(entry); err != nil {
		c.Log.WithError(err).WithField("entity_id", id).Error("failed to record dead letter")
	}
}

// propagate runs the diff-the-projection algorithm for one entity (spec
// §4.5 step 3).
func (c *Consumer[LU, DU, LD, DD]) propagate(ctx context.Context, id canonical.ID, merged canonical.TaskDiff) error {
	cBefore, err := c.Store.Get(id)
	if err != nil {
		return &StoreFailureError{Err: fmt.Errorf("loading %s: %w", id, err)}
	}
	before := canonical.Zero(id)
	if cBefore != nil {
		before = *cBefore
	}

	filtered := canonical.FilterNonAuthoritative(merged)
	after := canonical.Apply(before, filtered)

	if after.Status == canonical.StatusTerminal {
		return c.absorbTerminal(ctx, id, before)
	}

	// Entering ArchivedInDownstream retires the mirror this task pointed
	// at: the Downstream lens carries no status field of its own (spec
	// §4.1), so a later re-assertion to Active would otherwise project as
	// an update against the already-completed mirror instead of a create
	// (spec §8 scenario 5, "re-open after tag removal ... new
	// downstream_id stored"). Clearing the handle here forces propagateTo
	// down the create path the next time this id leaves
	// ArchivedInDownstream.
	if after.Status == canonical.StatusArchivedInDownstream {
		after.DownstreamID = canonical.None[string]()
	}

	var propErr error
	switch {
	case merged.SourceSystem == canonical.SystemUpstream && after.Status == canonical.StatusArchivedInDownstream:
		// Mirror is retired; an unrelated Upstream edit (e.g. a title
		// fix) must not resurrect it while the label that re-opens the
		// entity is still absent. Re-creation only happens once Status
		// itself moves back to Active, handled by the branch above and
		// the nil-handle force-create in propagateTo.
	case merged.SourceSystem == canonical.SystemUpstream:
		after, propErr = c.propagateTo(ctx, c.Downstream, c.DownstreamLimiter, "downstream", before, after)
	case merged.SourceSystem == canonical.SystemDownstream:
		after, propErr = c.propagateToUpstream(ctx, before, after)
	default:
		// No source recorded (shouldn't happen for a non-empty diff);
		// nothing to propagate, just persist the fold.
	}
	if propErr != nil {
		return propErr
	}

	if err := c.Store.Put(after); err != nil {
		return &StoreFailureError{Err: fmt.Errorf("storing %s: %w", id, err)}
	}
	return nil
}

// absorbTerminal implements spec §4.5's Terminal branch: invoking
// Downstream delete (idempotent on 404) when a mirror exists, then
// retiring the canonical row (invariant 2, P4).
func (c *Consumer[LU, DU, LD, DD]) absorbTerminal(ctx context.Context, id canonical.ID, before canonical.Task) error {
	if handle, ok := before.DownstreamID.Get(); ok {
		if c.DownstreamLimiter != nil {
			if err := c.DownstreamLimiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, err := classifyAndRetry(ctx, "downstream", func() (string, error) {
			return "", c.Downstream.Delete(ctx, handle)
		})
		if err != nil {
			var rl *rateLimitedRetry
			if errors.As(err, &rl) {
				return err
			}
			var authErr *AuthFailure
			if errors.As(err, &authErr) {
				return err
			}
			// Validation/unclassified delete failures still retire the
			// canonical row: Upstream has already said the item is gone,
			// so leaving a stale mirror around is worse than a failed
			// best-effort delete. Record to dead-letter for visibility.
			c.deadLetter(id, canonical.TaskDiff{Status: canonical.Some(canonical.StatusTerminal)}, err)
		}
	}
	if err := c.Store.Delete(id); err != nil {
		return &StoreFailureError{Err: fmt.Errorf("deleting %s: %w", id, err)}
	}
	return nil
}

// propagateTo runs project/lens_diff/apply against a generic target
// adapter (spec §4.5). It is used for the Upstream -> Downstream
// direction; propagateToUpstream below is its Upstream-typed twin, since
// Go generics can't unify the two concrete adapter type parameters behind
// one call.
func (c *Consumer[LU, DU, LD, DD]) propagateTo(
	ctx context.Context,
	target adapter.Adapter[LD, DD],
	limiter *ratelimit.Limiter,
	systemName string,
	before, after canonical.Task,
) (canonical.Task, error) {
	lensBefore, err := target.Project(ctx, before)
	if err != nil {
		return after, fmt.Errorf("projecting %s before: %w", systemName, err)
	}
	lensAfter, err := target.Project(ctx, after)
	if err != nil {
		return after, fmt.Errorf("projecting %s after: %w", systemName, err)
	}
	lensDiff := target.LensDiff(lensBefore, lensAfter)

	var handle *string
	if v, ok := after.DownstreamID.Get(); ok {
		handle = &v
	}

	// A create carries the whole projected task, not only the fields that
	// changed since before.
	if handle == nil {
		var empty LD
		lensDiff = target.LensDiff(empty, lensAfter)
	}

	// An empty lens diff ordinarily means nothing to sync, but a nil
	// handle means no mirror exists at all — skipping here would leave
	// the entity un-mirrored forever if its projected fields happen to
	// match whatever they were the last time a mirror existed (spec §8
	// scenario 5: title/description/etc are unchanged across the
	// archive/reopen round trip, only the handle was cleared).
	if target.IsEmpty(lensDiff) && handle != nil {
		return after, nil
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return after, err
		}
	}
	newHandle, err := classifyAndRetry(ctx, systemName, func() (string, error) {
		return target.Apply(ctx, lensDiff, handle)
	})
	if err != nil {
		return after, err
	}
	if handle == nil {
		after.DownstreamID = canonical.Some(newHandle)
	}
	return after, nil
}

// propagateToUpstream mirrors propagateTo for the Downstream -> Upstream
// direction, where Upstream's "handle" is always the upstream_id already
// carried on the task (Upstream never creates via this path; see
// pkg/upstream.Adapter.Apply).
func (c *Consumer[LU, DU, LD, DD]) propagateToUpstream(ctx context.Context, before, after canonical.Task) (canonical.Task, error) {
	lensBefore, err := c.Upstream.Project(ctx, before)
	if err != nil {
		return after, fmt.Errorf("projecting upstream before: %w", err)
	}
	lensAfter, err := c.Upstream.Project(ctx, after)
	if err != nil {
		return after, fmt.Errorf("projecting upstream after: %w", err)
	}
	lensDiff := c.Upstream.LensDiff(lensBefore, lensAfter)
	if c.Upstream.IsEmpty(lensDiff) {
		return after, nil
	}

	if c.UpstreamLimiter != nil {
		if err := c.UpstreamLimiter.Wait(ctx); err != nil {
			return after, err
		}
	}

	handle := after.UpstreamID
	_, err = classifyAndRetry(ctx, "upstream", func() (string, error) {
		return c.Upstream.Apply(ctx, lensDiff, &handle)
	})
	if err != nil {
		return after, err
	}
	return after, nil
}
