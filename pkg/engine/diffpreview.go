package engine

import (
	"encoding/json"
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/Kong/gojsondiff"
	"github.com/Kong/gojsondiff/formatter"

	"github.com/arlyon/linear-motion/pkg/canonical"
)

// RenderDiffPreview produces a human-readable rendering of the change
// between before and after, for the external status collaborator named
// in spec §7 ("errors are surfaced through the state-store's dead-letter
// map; the external status collaborator reads it"). Structural fields are
// rendered as a JSON diff (continuing the teacher's own "diff of a
// JSON-shaped record" use of Kong/gojsondiff); the long-form description
// body gets its own line-level text diff via hexops/gotextdiff, since a
// JSON-level diff of a multi-line markdown string is unreadable.
func RenderDiffPreview(before, after canonical.Task) (structural string, description string, err error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return "", "", fmt.Errorf("encoding before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return "", "", fmt.Errorf("encoding after snapshot: %w", err)
	}

	differ := gojsondiff.New()
	d, err := differ.Compare(beforeJSON, afterJSON)
	if err != nil {
		return "", "", fmt.Errorf("comparing snapshots: %w", err)
	}
	if d.Modified() {
		var beforeMap map[string]interface{}
		if err := json.Unmarshal(beforeJSON, &beforeMap); err != nil {
			return "", "", fmt.Errorf("decoding before snapshot: %w", err)
		}
		f := formatter.NewAsciiFormatter(beforeMap, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
		structural, err = f.Format(d)
		if err != nil {
			return "", "", fmt.Errorf("formatting structural diff: %w", err)
		}
	}

	beforeDesc, _ := before.Description.Get()
	afterDesc, _ := after.Description.Get()
	if beforeDesc != afterDesc {
		edits := myers.ComputeEdits(span.URIFromPath("description"), beforeDesc, afterDesc)
		description = fmt.Sprint(gotextdiff.ToUnified("before", "after", beforeDesc, edits))
	}

	return structural, description, nil
}
