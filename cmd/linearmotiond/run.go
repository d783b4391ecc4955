// Package main is the daemon entrypoint. Transport clients for Upstream
// and Downstream remain the out-of-scope external collaborators named in
// spec.md §1: Run takes already-constructed client implementations rather
// than instantiating any HTTP client itself.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/arlyon/linear-motion/pkg/config"
	"github.com/arlyon/linear-motion/pkg/deadletter"
	"github.com/arlyon/linear-motion/pkg/downstream"
	"github.com/arlyon/linear-motion/pkg/engine"
	"github.com/arlyon/linear-motion/pkg/ratelimit"
	"github.com/arlyon/linear-motion/pkg/store"
	"github.com/arlyon/linear-motion/pkg/upstream"
)

// Deps bundles the out-of-scope collaborators Run needs: a live Upstream
// client, a live Downstream client, and the channel a webhook HTTP
// receiver (also out of scope) publishes parsed deliveries onto.
type Deps struct {
	UpstreamClient   upstream.Client
	DownstreamClient downstream.Client
	Webhooks         <-chan upstream.Delivery
}

// Run wires config -> store -> adapters -> producers -> consumer ->
// scheduler and blocks until ctx is cancelled, implementing the
// "deterministic boundary" pattern of the teacher's own cmd entrypoint
// style: exported entry points take fully-constructed values, so the only
// thing left to argument-parsing in main() is selecting a subcommand.
func Run(ctx context.Context, cfg config.Config, deps Deps, storePath string, log *logrus.Logger) error {
	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	dl, err := deadletter.Open(st.DB())
	if err != nil {
		return err
	}

	upAdapter := &upstream.Adapter{
		Client:         deps.UpstreamClient,
		CompletedLabel: cfg.CompletedUpstreamLabel,
		Webhooks:       deps.Webhooks,
	}
	downAdapter := &downstream.Adapter{
		Client: deps.DownstreamClient,
		Mapper: downstream.EstimateMapper{
			Strategy:            cfg.TimeEstimateStrategy,
			DefaultDurationMins: cfg.DefaultTaskDurationMins,
		},
		PollInterval: cfg.PollInterval(),
	}

	queue := engine.NewQueue(cfg.QueueCapacity)

	upLimiter := ratelimit.NewFromHourlyBudget(1000, 100)
	downLimiter := ratelimit.NewFromPerMinuteBudget(60)

	consumer := engine.NewConsumer[upstream.Lens, upstream.LensDiff, downstream.Lens, downstream.LensDiff](
		queue, st, dl, upAdapter, downAdapter, upLimiter, downLimiter, log)
	consumer.MaxBatch = cfg.MaxBatch

	upProducer := &upstream.Producer{Adapter: upAdapter, Store: st, Sink: queue}
	downProducer := &downstream.Producer{Adapter: downAdapter, Store: st, Sink: queue}

	scheduler := engine.NewScheduler(
		upProducer.Run,
		downProducer.Run,
		consumer.Run,
	)

	return scheduler.Run(ctx)
}
