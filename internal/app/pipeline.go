// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docset-builder/docset-builder/internal/docset"
	"github.com/docset-builder/docset-builder/internal/environment"
	"github.com/docset-builder/docset-builder/internal/issue"
	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/internal/makefile"
	"github.com/docset-builder/docset-builder/internal/registry"
	"github.com/docset-builder/docset-builder/internal/repository"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// DocsetSubdir is the cache subdirectory doc2dash writes docsets into.
const DocsetSubdir = "docsets"

var log = logging.Module("app")

type (
	// Registry looks up package metadata.
	Registry interface {
		Lookup(ctx context.Context, name string) (registry.Info, error)
	}

	// Syncer brings a package repository up to date in the cache.
	Syncer interface {
		Sync(ctx context.Context, name string, info registry.Info) (repository.Checkout, error)
	}

	// Inferrer works out how to build the documentation of a checkout.
	Inferrer interface {
		Infer(packageName, root string) (buildinfo.BuildInfo, error)
	}

	// Packager converts built HTML into a docset.
	Packager interface {
		Build(ctx context.Context, htmlDir string, info buildinfo.BuildInfo, outDir string) (string, error)
	}

	// Installer places docsets in the viewer library.
	Installer interface {
		Install(docsetDir, version string) (string, error)
	}

	// Dependencies are the services a Pipeline drives. All fields are required.
	Dependencies struct {
		Registry Registry
		Repos    Syncer
		Inferrer Inferrer
		Builder  environment.Builder
		Packager Packager
		Library  Installer
		// CacheDir holds the docsets produced before installation.
		CacheDir string
	}

	// Pipeline installs docsets package by package.
	Pipeline struct {
		deps Dependencies
	}

	// InstallOptions tunes an Install run.
	InstallOptions struct {
		// BuildOnly stops after packaging; the docset stays in the cache.
		BuildOnly bool
	}

	// Result describes one successfully processed package.
	Result struct {
		Package string
		Version string
		// Docset is the installed docset, or the packaged one with BuildOnly.
		Docset    string
		Installed bool
	}
)

// New creates a pipeline.
func New(deps Dependencies) *Pipeline {
	return &Pipeline{deps: deps}
}

// Install processes packages in order. A failing package is logged and
// skipped; the returned error joins every failure, each prefixed with its
// package name.
func (p *Pipeline) Install(ctx context.Context, packages []string, opts InstallOptions) ([]Result, error) {
	results := make([]Result, 0, len(packages))
	var errs []error
	for _, name := range packages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := p.installOne(ctx, name, opts)
		if err != nil {
			log.Error("package failed", "package", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Inspect infers the build information of a local checkout without building.
func (p *Pipeline) Inspect(name, root string) (buildinfo.BuildInfo, error) {
	info, err := p.deps.Inferrer.Infer(name, root)
	if err != nil {
		return buildinfo.BuildInfo{}, inferError(name, err)
	}
	return info, nil
}

func (p *Pipeline) installOne(ctx context.Context, name string, opts InstallOptions) (Result, error) {
	logger := log.With("package", name)

	meta, err := p.deps.Registry.Lookup(ctx, name)
	if err != nil {
		return Result{}, lookupError(name, err)
	}
	if !meta.IsSufficient() {
		return Result{}, issue.NewErrorContext().
			WithOperation("locate source repository").
			WithResource(name).
			WithSuggestion("Add repository_url for this package to the overrides file").
			WithIssue(issue.RepositoryURLMissingId).
			Wrap(fmt.Errorf("missing registry fields: %s", strings.Join(meta.MissingFields(), ", "))).
			BuildError()
	}
	logger.Debug("registry metadata", "repository", meta.RepositoryURL, "release", meta.LatestRelease)

	checkout, err := p.deps.Repos.Sync(ctx, name, meta)
	if err != nil {
		return Result{}, issue.WrapWithContext(err, "sync repository", meta.RepositoryURL)
	}

	info, err := p.deps.Inferrer.Infer(name, checkout.Dir)
	if err != nil {
		return Result{}, inferError(name, err)
	}
	if missing := buildinfo.MissingFields(info); len(missing) > 0 {
		return Result{}, insufficientError(name, missing)
	}
	logger.Info("inferred build information", "info", info.String())

	if err := p.deps.Builder.Build(ctx, name, checkout.Dir, info); err != nil {
		return Result{}, buildError(name, p.deps.Builder.Name(), err)
	}

	htmlDir, err := docset.LocateBuiltDocs(info, checkout.Dir)
	if err != nil {
		return Result{}, issue.NewErrorContext().
			WithOperation("locate built documentation").
			WithResource(checkout.Dir).
			WithSuggestion("Check that the build commands write HTML into a _build/html directory").
			WithIssue(issue.BuiltDocsNotFoundId).
			Wrap(err).
			BuildError()
	}

	built, err := p.deps.Packager.Build(ctx, htmlDir, info, filepath.Join(p.deps.CacheDir, DocsetSubdir))
	if err != nil {
		return Result{}, err
	}

	res := Result{Package: name, Version: releaseVersion(meta, checkout), Docset: built}
	if opts.BuildOnly {
		logger.Info("docset built", "path", built)
		return res, nil
	}
	installed, err := p.deps.Library.Install(built, res.Version)
	if err != nil {
		return Result{}, err
	}
	res.Docset = installed
	res.Installed = true
	return res, nil
}

// releaseVersion prefers the registry release, then the checked out tag,
// then an abbreviated commit.
func releaseVersion(meta registry.Info, checkout repository.Checkout) string {
	switch {
	case meta.LatestRelease != "":
		return meta.LatestRelease
	case checkout.Tag != "":
		return checkout.Tag
	case len(checkout.Commit) >= 12:
		return checkout.Commit[:12]
	case checkout.Commit != "":
		return checkout.Commit
	default:
		return "unknown"
	}
}

func lookupError(name string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("look up package metadata").
		WithResource(name).
		WithIssue(issue.RegistryLookupFailedId).
		Wrap(err)
	if errors.Is(err, registry.ErrPackageNotFound) {
		ec = ec.WithSuggestion("Check the package name for typos")
	} else {
		ec = ec.WithSuggestion("Retry with --no-cache or check registry.url")
	}
	return ec.BuildError()
}

func inferError(name string, err error) error {
	var cycle *makefile.CycleError
	if !errors.As(err, &cycle) {
		return issue.WrapWithContext(err, "infer build information", name)
	}
	return issue.NewErrorContext().
		WithOperation("infer build information").
		WithResource(name).
		WithSuggestion("Fix the Makefile or provide build_commands in the overrides file").
		WithIssue(issue.MakefileCycleId).
		Wrap(err).
		BuildError()
}

func insufficientError(name string, missing []buildinfo.Field) error {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.String()
	}
	return issue.NewErrorContext().
		WithOperation("infer build information").
		WithResource(name).
		WithSuggestions(
			"Run 'docset-builder inspect "+name+" <repo-dir>' to see what was found",
			"Add the missing fields for this package to the overrides file",
		).
		WithIssue(issue.InsufficientBuildInfoId).
		Wrap(fmt.Errorf("insufficient build information, missing: %s", strings.Join(names, ", "))).
		BuildError()
}

func buildError(name, runtime string, err error) error {
	var be *environment.BuildError
	if errors.As(err, &be) && be.Output != "" {
		log.Error("build output", "package", name, "tail", be.Output)
	}
	return issue.NewErrorContext().
		WithOperation("build documentation ("+runtime+")").
		WithResource(name).
		WithSuggestion("Run with --verbose to stream the build output").
		WithIssue(issue.DocsBuildFailedId).
		Wrap(err).
		BuildError()
}
