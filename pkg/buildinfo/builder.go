// SPDX-License-Identifier: MPL-2.0

package buildinfo

import (
	"slices"
)

// Builder assembles a BuildInfo with first-writer-wins semantics.
// Setters return true when the value was stored. Empty values (""
// or zero-length slices) never count as a write.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	info    BuildInfo
	written map[Field]Source
	shadow  []ShadowedWrite
}

// NewBuilder starts a record for packageName with nothing written.
func NewBuilder(packageName string) *Builder {
	return &Builder{
		info:    BuildInfo{PackageName: packageName},
		written: make(map[Field]Source),
	}
}

// IsSet reports whether field has been written.
func (b *Builder) IsSet(field Field) bool {
	_, ok := b.written[field]
	return ok
}

// SourceOf returns the source that wrote field, or "" when unset.
func (b *Builder) SourceOf(field Field) Source {
	return b.written[field]
}

// BuildRoot returns the current build root ("" when unset).
func (b *Builder) BuildRoot() string { return b.info.BuildRoot }

// AllDependencies returns a copy of the collected dependencies.
func (b *Builder) AllDependencies() []string { return slices.Clone(b.info.AllDependencies) }

// UsesIcon returns the current icon flag.
func (b *Builder) UsesIcon() bool { return b.info.UsesIcon }

// SetBuildRoot writes the build root.
func (b *Builder) SetBuildRoot(path string, src Source) bool {
	if path == "" {
		return false
	}
	if !b.claim(FieldBuildRoot, src) {
		return false
	}
	b.info.BuildRoot = path
	return true
}

// SetBuildDependencies writes the build dependencies.
func (b *Builder) SetBuildDependencies(deps []string, src Source) bool {
	if len(deps) == 0 {
		return false
	}
	if !b.claim(FieldBuildDependencies, src) {
		return false
	}
	b.info.BuildDependencies = slices.Clone(deps)
	return true
}

// SetAllDependencies writes the complete dependency list.
func (b *Builder) SetAllDependencies(deps []string, src Source) bool {
	if len(deps) == 0 {
		return false
	}
	if !b.claim(FieldAllDependencies, src) {
		return false
	}
	b.info.AllDependencies = slices.Clone(deps)
	return true
}

// SetBuildCommands writes the build commands.
func (b *Builder) SetBuildCommands(cmds []string, src Source) bool {
	if len(cmds) == 0 {
		return false
	}
	if !b.claim(FieldBuildCommands, src) {
		return false
	}
	b.info.BuildCommands = slices.Clone(cmds)
	return true
}

// SetUsesIcon writes the icon flag. Unlike the other setters, false is a
// real value here: it is how overrides opt a package out of icons.
func (b *Builder) SetUsesIcon(uses bool, src Source) bool {
	if !b.claim(FieldUsesIcon, src) {
		return false
	}
	b.info.UsesIcon = uses
	return true
}

// SetIconPath writes the icon location.
func (b *Builder) SetIconPath(path string, src Source) bool {
	if path == "" {
		return false
	}
	if !b.claim(FieldIconPath, src) {
		return false
	}
	b.info.IconPath = path
	return true
}

// SetEntryPage writes the entry page file name.
func (b *Builder) SetEntryPage(page string, src Source) bool {
	if page == "" {
		return false
	}
	if !b.claim(FieldEntryPage, src) {
		return false
	}
	b.info.EntryPage = page
	return true
}

// Build returns a snapshot of the record. The Builder may keep being used;
// later writes do not affect snapshots already taken.
func (b *Builder) Build() BuildInfo {
	out := b.info.Clone()
	out.Sources = make(map[Field]Source, len(b.written))
	for f, s := range b.written {
		out.Sources[f] = s
	}
	out.Shadowed = slices.Clone(b.shadow)
	return out
}

func (b *Builder) claim(field Field, src Source) bool {
	if _, taken := b.written[field]; taken {
		b.shadow = append(b.shadow, ShadowedWrite{Field: field, Source: src})
		return false
	}
	b.written[field] = src
	return true
}
