// SPDX-License-Identifier: MPL-2.0

package app

import (
	"fmt"
	"io"

	"github.com/docset-builder/docset-builder/internal/config"
	"github.com/docset-builder/docset-builder/internal/docset"
	"github.com/docset-builder/docset-builder/internal/environment"
	"github.com/docset-builder/docset-builder/internal/inference"
	"github.com/docset-builder/docset-builder/internal/registry"
	"github.com/docset-builder/docset-builder/internal/repository"
	"github.com/docset-builder/docset-builder/pkg/overrides"
)

// WireOptions are the command line switches that affect wiring.
type WireOptions struct {
	// NoCache disables reading cached registry metadata.
	NoCache bool
	// Stdout and Stderr receive build and doc2dash output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// NewFromConfig builds the production pipeline for cfg and paths.
func NewFromConfig(cfg *config.Config, paths config.Paths, opts WireOptions) (*Pipeline, error) {
	table, err := overrides.Load(paths.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	builder, err := environment.New(cfg, paths.CacheDir, environment.WithOutput(stdout, stderr))
	if err != nil {
		return nil, err
	}

	return New(Dependencies{
		Registry: registry.NewClient(cfg.Registry.URL,
			registry.WithOverrides(table),
			registry.WithCache(paths.CacheDir, cfg.Registry.UseCache && !opts.NoCache),
		),
		Repos:    repository.NewSyncer(paths.CacheDir),
		Inferrer: inference.NewEngine(table),
		Builder:  builder,
		Packager: docset.NewPackager(paths.CacheDir, docset.WithPackagerOutput(stdout, stderr)),
		Library:  docset.NewLibrary(paths.LibraryDir, paths.InstalledIndex),
		CacheDir: paths.CacheDir,
	}), nil
}

// NewInspector builds a pipeline able to run Inspect only.
func NewInspector(paths config.Paths) (*Pipeline, error) {
	table, err := overrides.Load(paths.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	return New(Dependencies{Inferrer: inference.NewEngine(table)}), nil
}
