package downstream

import (
	"context"
	"time"

	"github.com/arlyon/linear-motion/pkg/adapter"
)

// pollFailure smuggles a poll error through the channel-shaped
// ProduceEvents contract, mirroring pkg/upstream's backfillFailure.
type pollFailure struct{ err error }

// ProduceEvents is Downstream's producer side of C3: a poll loop firing
// every PollInterval (default 10s per spec §4.4), expressed as a lazy
// sequence (design note 3).
func (a *Adapter) ProduceEvents(ctx context.Context) (<-chan adapter.ProducerEvent, error) {
	interval := a.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	out := make(chan adapter.ProducerEvent)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			tasks, err := a.Client.Poll(ctx)
			if err != nil {
				select {
				case out <- adapter.ProducerEvent{Payload: pollFailure{err: err}}:
				case <-ctx.Done():
				}
				return
			}
			for _, task := range tasks {
				select {
				case out <- adapter.ProducerEvent{ExternalID: task.ID, ObservedAt: task.UpdatedAt, Payload: task}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, nil
}
