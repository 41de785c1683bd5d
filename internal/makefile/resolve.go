// SPDX-License-Identifier: MPL-2.0

package makefile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/docset-builder/docset-builder/internal/dag"
)

// ErrDependencyCycle is the sentinel wrapped by CycleError.
var ErrDependencyCycle = errors.New("target dependency cycle")

type (
	// Section is the resolver input for one target: the names it depends on
	// and its own command lines.
	Section struct {
		Prerequisites []string
		Lines         []string
	}

	// CycleError reports targets whose prerequisites depend on each other.
	// Cycle is a closed path such as [docs init docs].
	CycleError struct {
		Cycle []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("target dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrDependencyCycle for errors.Is compatibility.
func (e *CycleError) Unwrap() error { return ErrDependencyCycle }

// Resolve flattens every section so that the lines of its prerequisites,
// recursively, come before its own lines, in prerequisite-list order.
// Prerequisites that are not sections (plain files) contribute nothing.
// A prerequisite shared by several paths is inlined once per path, as Make
// recipes are concatenated here rather than executed once.
func Resolve(sections map[string]Section) (map[string][]string, error) {
	g := dag.New()
	names := slices.Sorted(maps.Keys(sections))
	for _, name := range names {
		g.AddNode(name)
	}
	for _, name := range names {
		for _, dep := range sections[name].Prerequisites {
			if _, ok := sections[dep]; ok {
				g.AddEdge(dep, name)
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CycleError{Cycle: cycleErr.Cycle}
		}
		return nil, err
	}

	resolved := make(map[string][]string, len(sections))
	for _, name := range order {
		sec := sections[name]
		var lines []string
		for _, dep := range sec.Prerequisites {
			lines = append(lines, resolved[dep]...)
		}
		resolved[name] = append(lines, sec.Lines...)
	}
	return resolved, nil
}
