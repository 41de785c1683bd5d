// SPDX-License-Identifier: MPL-2.0

// Package environment builds a package's HTML documentation from inferred
// build information, either in a Python virtual environment driven by the
// embedded mvdan/sh interpreter or inside a throwaway container.
package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/config"
	"github.com/docset-builder/docset-builder/internal/container"
	"github.com/docset-builder/docset-builder/internal/issue"
	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// VenvSubdir is the cache subdirectory holding one virtual environment per package.
const VenvSubdir = "venvs"

var (
	log = logging.Module("build")

	// ErrBuildFailed is the sentinel wrapped by BuildError.
	ErrBuildFailed = errors.New("documentation build failed")
)

type (
	// Builder runs the dependency installation and build commands of a package.
	Builder interface {
		// Name returns the runtime name (virtual or container)
		Name() string
		// Build installs the build dependencies from repoRoot and runs the
		// build commands from info.BuildRoot.
		Build(ctx context.Context, pkg, repoRoot string, info buildinfo.BuildInfo) error
	}

	// Options carries the output streams shared by every builder.
	Options struct {
		Stdout io.Writer
		Stderr io.Writer
	}

	// Option configures a builder.
	Option func(*Options)

	// BuildError reports a step of the build script that exited non-zero.
	BuildError struct {
		Package  string
		Runtime  string
		ExitCode int
		// Output is the tail of the build's standard error.
		Output string
	}
)

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of %s failed in %s runtime (exit code %d)", e.Package, e.Runtime, e.ExitCode)
}

// Unwrap returns ErrBuildFailed for errors.Is() compatibility.
func (e *BuildError) Unwrap() error { return ErrBuildFailed }

// WithOutput sends build output to the given writers. Nil writers discard.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.Stdout = stdout
		o.Stderr = stderr
	}
}

func newOptions(opts []Option) Options {
	o := Options{Stdout: io.Discard, Stderr: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}
	return o
}

// New returns the builder selected by cfg.Runtime. cacheDir is the resolved
// cache directory; virtual environments live below it.
func New(cfg *config.Config, cacheDir string, opts ...Option) (Builder, error) {
	switch cfg.Runtime {
	case config.RuntimeContainer:
		engine, err := container.NewEngine(container.EngineType(cfg.Container.Engine))
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("select container engine").
				WithResource(cfg.Container.Engine.String()).
				WithSuggestion("Install podman or docker, or set runtime: \"virtual\" in the config").
				WithIssue(issue.ContainerEngineNotFoundId).
				Wrap(err).
				BuildError()
		}
		return NewContainerBuilder(engine, cfg.Container.Image, opts...), nil
	case config.RuntimeVirtual, "":
		return NewVirtualBuilder(filepath.Join(cacheDir, VenvSubdir), opts...), nil
	default:
		return nil, &config.InvalidRuntimeModeError{Value: cfg.Runtime}
	}
}
