package downstream

import (
	"context"
	"time"

	"github.com/arlyon/linear-motion/pkg/adapter"
	"github.com/arlyon/linear-motion/pkg/canonical"
)

// Lens is Downstream's full system-specific projection of a canonical
// task: unlike Upstream's narrow label-only lens, Downstream mirrors
// almost every field (spec §4.1 table: Upstream-authoritative fields
// "propagate yes" to Downstream).
type Lens struct {
	CanonicalID  string
	Name         string
	Description  string
	DueDate      *time.Time
	DurationMins int
	AssigneeRef  string
}

// LensDiff is the sparse set of Downstream fields Apply must write,
// mirroring canonical.Field's present/absent convention.
type LensDiff struct {
	CanonicalID  string
	Name         canonical.Field[string]
	Description  canonical.Field[string]
	DueDate      canonical.Field[time.Time]
	DurationMins canonical.Field[int]
	AssigneeRef  canonical.Field[string]
}

// Adapter is the concrete C3 Adapter for Downstream.
type Adapter struct {
	Client  Client
	Mapper  EstimateMapper
	PollInterval time.Duration
}

var _ adapter.Adapter[Lens, LensDiff] = (*Adapter)(nil)

// Project transforms a canonical task into Downstream's lens. Pure; the
// estimate -> duration mapping is the adapter-local function named in
// spec §6/design note "Estimate mapping".
func (a *Adapter) Project(_ context.Context, task canonical.Task) (Lens, error) {
	lens := Lens{
		CanonicalID: string(task.ID),
		Name:        task.Title,
		AssigneeRef: task.AssigneeRef.OrElse(""),
	}
	lens.Description, _ = task.Description.Get()
	if due, ok := task.DueDate.Get(); ok {
		d := due
		lens.DueDate = &d
	}
	points, present := task.EstimatePoints.Get()
	lens.DurationMins = a.Mapper.Minutes(points, present)
	return lens, nil
}

// LensDiff computes the field-wise diff between two Downstream lenses.
func (a *Adapter) LensDiff(before, after Lens) LensDiff {
	d := LensDiff{CanonicalID: after.CanonicalID}
	if before.Name != after.Name {
		d.Name = canonical.Some(after.Name)
	}
	if before.Description != after.Description {
		d.Description = canonical.Some(after.Description)
	}
	if !dueEqual(before.DueDate, after.DueDate) && after.DueDate != nil {
		d.DueDate = canonical.Some(*after.DueDate)
	}
	if before.DurationMins != after.DurationMins {
		d.DurationMins = canonical.Some(after.DurationMins)
	}
	if before.AssigneeRef != after.AssigneeRef {
		d.AssigneeRef = canonical.Some(after.AssigneeRef)
	}
	return d
}

func dueEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// IsEmpty reports whether d carries no field writes.
func (a *Adapter) IsEmpty(d LensDiff) bool {
	return !d.Name.Present && !d.Description.Present && !d.DueDate.Present &&
		!d.DurationMins.Present && !d.AssigneeRef.Present
}

// Apply performs the Downstream create/update call. handle absent means
// create; Apply must return the new handle on create (spec §4.3).
// Idempotency collisions ("already exists") are the concrete Client's
// responsibility to translate into a recovered handle (spec §7 kind 6);
// this method simply forwards whatever the Client returns.
func (a *Adapter) Apply(ctx context.Context, d LensDiff, handle *string) (string, error) {
	if handle == nil {
		task := Task{
			CanonicalID:  d.CanonicalID,
			Name:         d.Name.OrElse(""),
			Description:  d.Description.OrElse(""),
			DurationMins: d.DurationMins.OrElse(0),
			AssigneeRef:  d.AssigneeRef.OrElse(""),
		}
		if v, ok := d.DueDate.Get(); ok {
			task.DueDate = &v
		}
		return a.Client.Create(ctx, task)
	}

	patch := Patch{
		Name:         d.Name,
		Description:  d.Description,
		DueDate:      d.DueDate,
		DurationMins: d.DurationMins,
		AssigneeRef:  d.AssigneeRef,
	}
	if err := a.Client.Update(ctx, *handle, patch); err != nil {
		return "", err
	}
	return *handle, nil
}

// Delete removes the Downstream task on Terminal absorption (spec §4.5).
// 404 is success (spec §6); the concrete Client is responsible for that
// translation.
func (a *Adapter) Delete(ctx context.Context, handle string) error {
	return a.Client.Delete(ctx, handle)
}
