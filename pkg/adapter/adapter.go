// Package adapter defines the contract every external system (Upstream,
// Downstream) implements (spec §4.3). It is the generic generalization of
// the teacher's per-entity-kind crud.Actions/types.Differ split
// (pkg/crud/types.go, pkg/types/aclgroup.go), collapsed from "one
// interface per Kong entity kind" to "one interface parameterized per
// external system" per spec §9's "engine is parameterized once at
// construction over (UpstreamAdapter, DownstreamAdapter)."
package adapter

import (
	"context"
	"time"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

// ProducerEvent is an opaque event surfaced by an adapter's producer
// side, e.g. a parsed webhook delivery or a poll-tick's tasks. Producers
// (pkg/upstream, pkg/downstream) turn these into canonical diffs; the
// engine never inspects Payload itself.
type ProducerEvent struct {
	// UpstreamID or DownstreamID this event concerns, used to resolve
	// (or mint) a canonical id.
	ExternalID string
	// ObservedAt is the event's own timestamp if one was provided,
	// otherwise the producer's wall-clock ingress time (spec §9's
	// documented source_timestamp fallback).
	ObservedAt time.Time
	// Payload is the adapter-specific decoded event (e.g.
	// *upstream.WebhookEvent, *downstream.PollTask).
	Payload any
}

// Adapter is the contract an external system implements (spec §4.3).
// L is the adapter's lens type (its system-specific projection of a
// CanonicalTask); D is the adapter's lens-diff type.
type Adapter[L any, D any] interface {
	// Project transforms a canonical task into this system's shape.
	// Pure; no I/O.
	Project(ctx context.Context, task canonical.Task) (L, error)

	// LensDiff computes the adapter-local diff between two lenses.
	LensDiff(before, after L) D

	// IsEmpty reports whether a lens diff carries no changes.
	IsEmpty(d D) bool

	// Apply performs the network call(s) implied by d. handle is the
	// system-side id if one exists; nil means "create." On create,
	// Apply returns the new system-side id.
	Apply(ctx context.Context, d D, handle *string) (string, error)

	// Delete removes the system-side item by handle, used on Terminal
	// absorption (spec §4.5: "invoke Downstream adapter delete"). Must be
	// idempotent (404-shaped outcomes are success); an adapter for which
	// deletion is meaningless (Upstream: the engine never deletes
	// Upstream issues) implements this as a no-op.
	Delete(ctx context.Context, handle string) error

	// ProduceEvents is the adapter's producer side: a webhook sink or
	// poll loop, expressed as a channel the caller ranges over until ctx
	// is cancelled (the Go rendering of spec §9's "lazy sequence of
	// ProducerEvents driven by the scheduler").
	ProduceEvents(ctx context.Context) (<-chan ProducerEvent, error)
}
