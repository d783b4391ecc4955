// Package status implements the read-only view the external "status"
// collaborator (spec §7) uses to inspect entity state and dead letters.
// It never mutates the store: everything it does is Get/All + render.
package status

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/arlyon/linear-motion/pkg/canonical"
	"github.com/arlyon/linear-motion/pkg/deadletter"
	"github.com/arlyon/linear-motion/pkg/engine"
	"github.com/arlyon/linear-motion/pkg/store"
)

var (
	blueSprint   = color.New(color.FgBlue).SprintFunc()
	greenSprint  = color.New(color.FgGreen).SprintFunc()
	yellowSprint = color.New(color.FgYellow).SprintFunc()
	redSprint    = color.New(color.FgRed).SprintFunc()
)

// CompatibleStoreVersion is the oldest on-disk schema version this build
// of the status viewer can read. Bumped alongside a store format change.
var CompatibleStoreVersion = semver.MustParse("1.0.0")

// EntitySummary is one row of the "current state" listing.
type EntitySummary struct {
	ID         canonical.ID
	UpstreamID string
	Title      string
	Status     canonical.Status
}

// DeadLetterSummary is one row of the dead-letter listing, with a
// human-readable diff preview attached.
type DeadLetterSummary struct {
	deadletter.Entry
	StructuralDiff string
	DescriptionDiff string
}

// View renders the daemon's observable state from st and dl: active
// entities print green, archived-in-downstream yellow, dead letters red.
type View struct {
	Store      *store.Store
	DeadLetter *deadletter.Table
}

// CheckVersion reports whether storeVersion (the schema version recorded
// in the store file this binary opened) is compatible with this build.
func (v *View) CheckVersion(storeVersion semver.Version) error {
	if storeVersion.Major != CompatibleStoreVersion.Major {
		return fmt.Errorf("store schema version %s is incompatible with this build (requires %s.x)",
			storeVersion, CompatibleStoreVersion)
	}
	return nil
}

// Entities returns every tracked task, sorted by upstream id for stable
// output across invocations.
func (v *View) Entities() ([]EntitySummary, error) {
	tasks, err := v.Store.All()
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	summaries := make([]EntitySummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, EntitySummary{
			ID:         t.ID,
			UpstreamID: t.UpstreamID,
			Title:      t.Title,
			Status:     t.Status,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UpstreamID < summaries[j].UpstreamID })
	return summaries, nil
}

// DeadLetters returns every dead-lettered entry, each paired with its
// diff preview rendered against the entity's current state (or against
// canonical.Zero if the entity no longer exists).
func (v *View) DeadLetters() ([]DeadLetterSummary, error) {
	entries, err := v.DeadLetter.All()
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	summaries := make([]DeadLetterSummary, 0, len(entries))
	for _, e := range entries {
		before := canonical.Zero(e.ID)
		if current, err := v.Store.Get(e.ID); err == nil && current != nil {
			before = *current
		}
		after := canonical.Apply(before, e.Diff)
		structural, description, err := engine.RenderDiffPreview(before, after)
		if err != nil {
			structural = fmt.Sprintf("(diff preview unavailable: %v)", err)
		}
		summaries = append(summaries, DeadLetterSummary{
			Entry:           e,
			StructuralDiff:  structural,
			DescriptionDiff: description,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].FailedAt.Before(summaries[j].FailedAt) })
	return summaries, nil
}

// Print writes a colorized summary to w (active=green, archived-in-
// downstream=yellow, dead letter=red). The informational banner line is
// only emitted when stdout is a terminal, matching the teacher's own
// convention of suppressing decorative output when piped.
func (v *View) Print(w io.Writer) error {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	entities, err := v.Entities()
	if err != nil {
		return err
	}
	if isTTY {
		fmt.Fprintln(w, blueSprint(fmt.Sprintf("%d tracked entities", len(entities))))
	}
	for _, e := range entities {
		line := fmt.Sprintf("%s  %-40s  %s", e.UpstreamID, e.Title, e.Status)
		switch e.Status {
		case canonical.StatusActive:
			line = greenSprint(line)
		case canonical.StatusArchivedInDownstream:
			line = yellowSprint(line)
		}
		fmt.Fprintln(w, line)
	}

	deadLetters, err := v.DeadLetters()
	if err != nil {
		return err
	}
	for _, d := range deadLetters {
		fmt.Fprintln(w, redSprint(fmt.Sprintf("%s  failed %s: %s", d.ID, d.FailedAt.Format("2006-01-02T15:04:05Z"), d.Err)))
		if d.StructuralDiff != "" {
			fmt.Fprintln(w, d.StructuralDiff)
		}
		if d.DescriptionDiff != "" {
			fmt.Fprintln(w, d.DescriptionDiff)
		}
	}
	return nil
}
