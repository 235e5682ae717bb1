// Package diff shows where the canonical rendering of an org file departs from
// the file on disk.
package diff

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/gerunddev/orgnode/parser"
)

// Unified returns a unified diff from original to rendered, or "" when both are equal.
func Unified(name, original, rendered string) string {
	if original == rendered {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(name), original, rendered)
	return fmt.Sprint(gotextdiff.ToUnified(name, name+" (canonical)", original, edits))
}

// File parses the org file at path with p and diffs its content against the
// canonical rendering of the parsed document.
func File(p *parser.Parser, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read org file: %w: %w", parser.ErrSourceUnavailable, err)
	}

	doc, err := p.ParseString(string(content))
	if err != nil {
		return "", err
	}

	return Unified(filepath.Base(path), string(content), doc.String()), nil
}

// Render styles a unified diff for the terminal. The diff is wrapped in a diff
// code fence so glamour colours added and removed lines.
func Render(unified string) string {
	if unified == "" {
		return ""
	}
	fenced := fmt.Sprintf("```diff\n%s```\n", unified)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		// Fallback to plain diff if glamour fails
		return fenced
	}

	rendered, err := renderer.Render(fenced)
	if err != nil {
		return fenced
	}

	return rendered
}
