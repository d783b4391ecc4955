// Package upstream is the Upstream (Linear-shaped) half of C4 (producer)
// and C3 (concrete adapter), grounded on the teacher's per-entity CRUD
// split (pkg/types/aclgroup.go: a struct wrapping an injected transport
// client, plus a pure differ). The concrete HTTP/GraphQL transport is the
// out-of-scope collaborator named in spec §1; this package depends only
// on the Client interface below.
package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-querystring/query"
)

// Issue is the subset of an Upstream issue this package reads to build a
// canonical projection, modeled after the webhook payload's `data` object
// (spec §6).
type Issue struct {
	ID          string
	Title       string
	Description string
	StateType   string // Linear-shaped workflow state category, e.g. "started", "completed", "canceled"
	Estimate    *float64
	DueDate     *time.Time
	AssigneeRef string
	Labels      []string
	UpdatedAt   time.Time
}

// BackfillFilter selects the startup backfill query ("open issues assigned
// to me", spec §4.4). Encoded with google/go-querystring into a stable
// cache/log key so repeated backfills are recognizably idempotent in logs
// without this package depending on the concrete query transport.
type BackfillFilter struct {
	AssigneeRef string   `url:"assignee"`
	ProjectIDs  []string `url:"project,omitempty"`
	ExcludeDone bool     `url:"exclude_done"`
}

// BackfillCacheKey encodes filter into a stable, log-friendly query
// string, so repeated backfills with the same filter are recognizably
// idempotent in logs and error messages without this package depending on
// the concrete query transport.
func BackfillCacheKey(filter BackfillFilter) (string, error) {
	values, err := query.Values(filter)
	if err != nil {
		return "", fmt.Errorf("encoding backfill filter: %w", err)
	}
	return values.Encode(), nil
}

// Client is the injected Upstream transport. The concrete implementation
// (HTTP/GraphQL against the real issue tracker) is supplied by the
// caller; this package only depends on this interface.
type Client interface {
	// ListAssignedOpenIssues runs the startup backfill query.
	ListAssignedOpenIssues(ctx context.Context, filter BackfillFilter) ([]Issue, error)

	// AddLabel performs the Upstream label-add mutation (spec §6:
	// "GraphQL mutation; duplicate-label errors are success"). label is
	// the already-canonicalized label name.
	AddLabel(ctx context.Context, issueID, label string) error

	// RemoveLabel is the inverse; Adapter.Apply calls it for every label
	// in LensDiff.RemoveLabels. The consumer only applies Downstream-
	// sourced diffs to Upstream, and those only add the completed label.
	RemoveLabel(ctx context.Context, issueID, label string) error
}

// TerminalStates are the Linear-shaped workflow state categories whose
// semantic is "work is over" (spec §4.4 step 5, GLOSSARY "Terminal
// state").
var TerminalStates = map[string]bool{
	"completed": true,
	"canceled":  true,
	"deleted":   true,
}

// IsTerminal reports whether stateType denotes a terminal workflow state.
func IsTerminal(stateType string) bool {
	return TerminalStates[stateType]
}
