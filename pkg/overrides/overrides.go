// SPDX-License-Identifier: MPL-2.0

// Package overrides holds the per-package override table: partially filled
// build and registry records that take precedence over every heuristic.
//
// A Table is built once at start-up (builtin entries, optionally merged with
// the user's overrides.cue) and is read-only afterwards, so it can be shared
// by concurrent inference runs.
package overrides

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"

	"github.com/docset-builder/docset-builder/pkg/cueutil"
)

// FileName is the name of the user override file in the config directory.
const FileName = "overrides.cue"

//go:embed overrides_schema.cue
var schema []byte

type (
	// Entry is a partial record for one package. Zero values mean "not
	// overridden", except UsesIcon which is a pointer so that false can be
	// expressed.
	Entry struct {
		BuildRoot         string   `json:"build_root,omitempty"`
		BuildDependencies []string `json:"build_dependencies,omitempty"`
		BuildCommands     []string `json:"build_commands,omitempty"`
		UsesIcon          *bool    `json:"uses_icon,omitempty"`
		IconPath          string   `json:"icon_path,omitempty"`
		EntryPage         string   `json:"entry_page,omitempty"`

		RepositoryURL string `json:"repository_url,omitempty"`
		LatestRelease string `json:"latest_release,omitempty"`
	}

	// Table maps package names to override entries.
	Table struct {
		entries map[string]Entry
	}

	file struct {
		Packages map[string]Entry `json:"packages"`
	}
)

// builtinEntries are the overrides shipped with the binary.
func builtinEntries() map[string]Entry {
	return map[string]Entry{
		"arrow": {
			IconPath: "https://em-content.zobj.net/thumbs/160/google/350/bow-and-arrow_1f3f9.png",
		},
	}
}

// New creates a Table from entries. The map is copied.
func New(entries map[string]Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for name, e := range entries {
		t.entries[name] = e.clone()
	}
	return t
}

// Builtin returns the table of shipped overrides.
func Builtin() *Table {
	return New(builtinEntries())
}

// Load returns the builtin table merged with the override file at path.
// Entries from the file replace builtin entries for the same package.
// A missing file is not an error.
func Load(path string) (*Table, error) {
	entries := builtinEntries()
	if path == "" {
		return New(entries), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(entries), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	parsed, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	maps.Copy(entries, parsed)
	return New(entries), nil
}

// Parse decodes an overrides document.
func Parse(data []byte, filename string) (map[string]Entry, error) {
	res, err := cueutil.ParseAndDecode[file](schema, data, "#Overrides", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return res.Value.Packages, nil
}

// Lookup returns the entry for name. Unknown names yield the zero Entry.
func (t *Table) Lookup(name string) Entry {
	if t == nil {
		return Entry{}
	}
	return t.entries[name].clone()
}

// Names returns the overridden package names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.entries))
}

// IsZero reports whether the entry overrides nothing.
func (e Entry) IsZero() bool {
	return e.BuildRoot == "" && len(e.BuildDependencies) == 0 && len(e.BuildCommands) == 0 &&
		e.UsesIcon == nil && e.IconPath == "" && e.EntryPage == "" &&
		e.RepositoryURL == "" && e.LatestRelease == ""
}

func (e Entry) clone() Entry {
	out := e
	out.BuildDependencies = slices.Clone(e.BuildDependencies)
	out.BuildCommands = slices.Clone(e.BuildCommands)
	if e.UsesIcon != nil {
		v := *e.UsesIcon
		out.UsesIcon = &v
	}
	return out
}
