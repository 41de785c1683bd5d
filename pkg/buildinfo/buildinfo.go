// SPDX-License-Identifier: MPL-2.0

package buildinfo

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	// FieldBuildRoot is the directory build commands run from.
	FieldBuildRoot Field = "build_root"
	// FieldBuildDependencies lists the specifiers needed to run the build commands.
	FieldBuildDependencies Field = "build_dependencies"
	// FieldAllDependencies lists every specifier discovered in the repository.
	FieldAllDependencies Field = "all_dependencies"
	// FieldBuildCommands lists the shell commands producing the HTML docs.
	FieldBuildCommands Field = "build_commands"
	// FieldUsesIcon records whether the docset carries a custom icon.
	FieldUsesIcon Field = "uses_icon"
	// FieldIconPath is the icon asset (local path or remote URL).
	FieldIconPath Field = "icon_path"
	// FieldEntryPage is the documentation landing page.
	FieldEntryPage Field = "entry_page"

	// SourceOverride marks values seeded from the override table.
	SourceOverride Source = "override"
	// SourceDefault marks values filled in when nothing else provided one.
	SourceDefault Source = "default"
	// SourceCollector marks values produced by the dependency collector.
	SourceCollector Source = "collector"
)

type (
	// Field names a BuildInfo field. The string values match the
	// snake_case names used in diagnostics and the override file.
	Field string

	// Source identifies the mechanism that wrote a field.
	Source string

	// ShadowedWrite is a write attempt that was ignored because the field
	// had already been written by an earlier source.
	ShadowedWrite struct {
		Field  Field
		Source Source
	}

	// BuildInfo describes how to build the documentation of one package.
	// It is produced by Builder.Build and not mutated afterwards; the slices
	// are private copies.
	BuildInfo struct {
		PackageName       string
		BuildRoot         string
		BuildDependencies []string
		AllDependencies   []string
		BuildCommands     []string
		UsesIcon          bool
		IconPath          string
		EntryPage         string

		// Sources maps each written field to the mechanism that wrote it.
		Sources map[Field]Source
		// Shadowed lists ignored writes in the order they were attempted.
		Shadowed []ShadowedWrite
	}
)

// String returns the field name.
func (f Field) String() string { return string(f) }

// String returns the source name.
func (s Source) String() string { return string(s) }

// SourceOf returns the mechanism that wrote field, or "" when unset.
func (b BuildInfo) SourceOf(field Field) Source {
	return b.Sources[field]
}

// Clone returns a deep copy of the record.
func (b BuildInfo) Clone() BuildInfo {
	out := b
	out.BuildDependencies = slices.Clone(b.BuildDependencies)
	out.AllDependencies = slices.Clone(b.AllDependencies)
	out.BuildCommands = slices.Clone(b.BuildCommands)
	out.Sources = maps.Clone(b.Sources)
	out.Shadowed = slices.Clone(b.Shadowed)
	return out
}

// Equal reports whether two records carry identical values and attribution.
func (b BuildInfo) Equal(other BuildInfo) bool {
	return b.PackageName == other.PackageName &&
		b.BuildRoot == other.BuildRoot &&
		slices.Equal(b.BuildDependencies, other.BuildDependencies) &&
		slices.Equal(b.AllDependencies, other.AllDependencies) &&
		slices.Equal(b.BuildCommands, other.BuildCommands) &&
		b.UsesIcon == other.UsesIcon &&
		b.IconPath == other.IconPath &&
		b.EntryPage == other.EntryPage &&
		maps.Equal(b.Sources, other.Sources) &&
		slices.Equal(b.Shadowed, other.Shadowed)
}

// String renders the record on one line for log output.
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package=%s", b.PackageName)
	fmt.Fprintf(&sb, " build_root=%q", b.BuildRoot)
	fmt.Fprintf(&sb, " build_dependencies=%q", b.BuildDependencies)
	fmt.Fprintf(&sb, " build_commands=%q", b.BuildCommands)
	fmt.Fprintf(&sb, " uses_icon=%t", b.UsesIcon)
	if b.IconPath != "" {
		fmt.Fprintf(&sb, " icon_path=%q", b.IconPath)
	}
	if b.EntryPage != "" {
		fmt.Fprintf(&sb, " entry_page=%q", b.EntryPage)
	}
	return sb.String()
}
