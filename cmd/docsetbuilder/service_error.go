// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/docset-builder/docset-builder/internal/issue"
)

// issueStyle is the glamour style used for catalog entries.
const issueStyle = "dark"

// renderError prints every failure of err, then the catalog help for each
// distinct issue they link, once.
func renderError(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}
	failures := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	}

	var ids []issue.Id
	seen := map[issue.Id]bool{}
	for _, f := range failures {
		fmt.Fprintln(w, ErrorStyle.Render("✗ ")+formatErrorForDisplay(f, verbose))
		if id := issue.IssueOf(f); id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		entry := issue.Get(id)
		if entry == nil {
			continue
		}
		rendered, renderErr := entry.Render(issueStyle)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			continue
		}
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// list their suggestions; verbose mode adds the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		// Keep wrapping prefixes such as the package name.
		prefix, ok := strings.CutSuffix(err.Error(), ae.Error())
		if !ok {
			prefix = ""
		}
		return prefix + ae.Format(verbose)
	}
	return err.Error()
}
