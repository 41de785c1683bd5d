// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// VirtualBuilder builds documentation in a per-package Python virtual
// environment. Every step runs through the mvdan/sh interpreter with the
// venv's bin directory first on PATH.
type VirtualBuilder struct {
	venvRoot string
	python   string
	opts     Options
}

// NewVirtualBuilder creates a builder keeping its venvs under venvRoot.
func NewVirtualBuilder(venvRoot string, opts ...Option) *VirtualBuilder {
	return &VirtualBuilder{
		venvRoot: venvRoot,
		python:   "python3",
		opts:     newOptions(opts),
	}
}

// Name returns the runtime name.
func (b *VirtualBuilder) Name() string { return "virtual" }

// VenvDir returns the virtual environment directory of pkg.
func (b *VirtualBuilder) VenvDir(pkg string) string {
	return filepath.Join(b.venvRoot, pkg)
}

// Build creates the venv on first use, installs each dependency with
// pip install --upgrade from repoRoot, then runs each build command from
// the build root. The first failing step aborts the build.
func (b *VirtualBuilder) Build(ctx context.Context, pkg, repoRoot string, info buildinfo.BuildInfo) error {
	steps, err := planSteps(repoRoot, info)
	if err != nil {
		return err
	}

	venv := b.VenvDir(pkg)
	env := venvEnviron(venv)
	logger := log.With("package", pkg, "venv", venv)

	if _, err := os.Stat(venv); errors.Is(err, os.ErrNotExist) {
		quoted, err := syntax.Quote(venv, syntax.LangPOSIX)
		if err != nil {
			return fmt.Errorf("quote venv directory %q: %w", venv, err)
		}
		logger.Info("creating virtual environment")
		if err := os.MkdirAll(b.venvRoot, 0o755); err != nil {
			return fmt.Errorf("create venv directory: %w", err)
		}
		create := step{dir: repoRoot, command: b.python + " -m venv " + quoted}
		if err := b.run(ctx, pkg, create, env); err != nil {
			_ = os.RemoveAll(venv) // a half-created venv would be reused next time
			return err
		}
	}

	for _, s := range steps {
		if s.dependency != "" {
			logger.Info("installing requirement", "requirement", s.dependency)
		} else {
			logger.Info("running doc build command", "command", s.command, "dir", s.dir)
		}
		if err := b.run(ctx, pkg, s, env); err != nil {
			return err
		}
	}
	return nil
}

// run executes one step in a fresh interpreter.
func (b *VirtualBuilder) run(ctx context.Context, pkg string, s step, env []string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(s.command), "build")
	if err != nil {
		return fmt.Errorf("failed to parse command %q: %w", s.command, err)
	}

	tail := &tailWriter{}
	runner, err := interp.New(
		interp.Dir(s.dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, b.opts.Stdout, io.MultiWriter(b.opts.Stderr, tail)),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &BuildError{Package: pkg, Runtime: b.Name(), ExitCode: int(exitStatus), Output: tail.String()}
		}
		return fmt.Errorf("command %q failed: %w", s.command, err)
	}
	return nil
}

// venvEnviron is the host environment as seen after sourcing bin/activate.
func venvEnviron(venv string) []string {
	bin := filepath.Join(venv, "bin")
	env := os.Environ()
	env = append(env,
		"VIRTUAL_ENV="+venv,
		"PATH="+bin+string(os.PathListSeparator)+os.Getenv("PATH"),
		"PYTHONDONTWRITEBYTECODE=1",
	)
	return env
}
