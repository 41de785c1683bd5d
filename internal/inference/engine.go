// SPDX-License-Identifier: MPL-2.0

package inference

import (
	"fmt"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/internal/requirements"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
	"github.com/docset-builder/docset-builder/pkg/overrides"
)

var log = logging.Module("infer")

type (
	// Engine infers build information. It holds no per-package state.
	Engine struct {
		overrides  *overrides.Table
		extractors []Extractor
		collect    func(root string) []string
	}

	// Option customises an Engine.
	Option func(*Engine)
)

// WithExtractors replaces the default extractor list.
func WithExtractors(extractors ...Extractor) Option {
	return func(e *Engine) { e.extractors = extractors }
}

// WithCollector replaces the dependency collector.
func WithCollector(collect func(root string) []string) Option {
	return func(e *Engine) { e.collect = collect }
}

// NewEngine creates an Engine consulting table before any heuristic. A nil
// table means no overrides.
func NewEngine(table *overrides.Table, opts ...Option) *Engine {
	if table == nil {
		table = overrides.New(nil)
	}
	e := &Engine{
		overrides:  table,
		extractors: DefaultExtractors(),
		collect:    requirements.Collect,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer works out how to build the documentation of packageName from the
// checkout at root. The only error is a prerequisite cycle in the root
// Makefile (*makefile.CycleError); an incomplete result is not an error,
// callers check it with buildinfo.MissingFields.
func (e *Engine) Infer(packageName, root string) (buildinfo.BuildInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return buildinfo.BuildInfo{}, fmt.Errorf("resolve repository root: %w", err)
	}
	logger := log.With("package", packageName)

	b := e.seed(packageName, abs)

	if deps := e.collect(abs); b.SetAllDependencies(deps, buildinfo.SourceCollector) {
		logger.Debug("collected dependencies", "count", len(deps))
	}

	for _, ex := range e.extractors {
		if recipeComplete(b) {
			break
		}
		if err := ex.Extract(b, abs); err != nil {
			return buildinfo.BuildInfo{}, fmt.Errorf("%s: %w", ex.Name(), err)
		}
	}

	applyEntryPage(b)
	applyIconSearch(b, abs)

	info := b.Build()
	for _, s := range info.Shadowed {
		logger.Debug("ignored later value", "field", s.Field, "source", s.Source)
	}
	return info, nil
}

// seed applies the override entry, then defaults.
func (e *Engine) seed(packageName, root string) *buildinfo.Builder {
	b := buildinfo.NewBuilder(packageName)
	entry := e.overrides.Lookup(packageName)

	if entry.BuildRoot != "" {
		buildRoot := entry.BuildRoot
		if !filepath.IsAbs(buildRoot) {
			buildRoot = filepath.Join(root, filepath.FromSlash(buildRoot))
		}
		b.SetBuildRoot(buildRoot, buildinfo.SourceOverride)
	}
	b.SetBuildDependencies(entry.BuildDependencies, buildinfo.SourceOverride)
	b.SetBuildCommands(entry.BuildCommands, buildinfo.SourceOverride)
	if entry.UsesIcon != nil {
		b.SetUsesIcon(*entry.UsesIcon, buildinfo.SourceOverride)
	}
	b.SetIconPath(entry.IconPath, buildinfo.SourceOverride)
	b.SetEntryPage(entry.EntryPage, buildinfo.SourceOverride)

	if !b.IsSet(buildinfo.FieldUsesIcon) {
		b.SetUsesIcon(true, buildinfo.SourceDefault)
	}
	return b
}
