package upstream

import (
	"context"
	"fmt"

	"github.com/arlyon/linear-motion/pkg/adapter"
)

// backfillFailure is a sentinel ProducerEvent payload used to smuggle a
// backfill error through the channel-shaped ProduceEvents contract
// (design note 3: "generator-style webhook/poll loops ... lazy sequence
// of ProducerEvents"). Producer.Run treats it as fatal for this adapter's
// task.
type backfillFailure struct{ err error }

// ProduceEvents is Upstream's producer side of C3: the startup backfill
// followed by the live webhook stream, both expressed as a single lazy
// sequence (design note 3), cancelled via ctx per spec §5.
func (a *Adapter) ProduceEvents(ctx context.Context) (<-chan adapter.ProducerEvent, error) {
	out := make(chan adapter.ProducerEvent)

	go func() {
		defer close(out)

		issues, err := a.Client.ListAssignedOpenIssues(ctx, a.Filter)
		if err != nil {
			if key, keyErr := BackfillCacheKey(a.Filter); keyErr == nil {
				err = fmt.Errorf("backfill query %s: %w", key, err)
			}
			select {
			case out <- adapter.ProducerEvent{Payload: backfillFailure{err: err}}:
			case <-ctx.Done():
			}
			return
		}
		for _, issue := range issues {
			delivery := Delivery{Action: ActionUpdate, Issue: issue}
			select {
			case out <- adapter.ProducerEvent{ExternalID: issue.ID, ObservedAt: issue.UpdatedAt, Payload: delivery}:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-a.Webhooks:
				if !ok {
					return
				}
				select {
				case out <- adapter.ProducerEvent{ExternalID: delivery.Issue.ID, ObservedAt: delivery.Issue.UpdatedAt, Payload: delivery}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
