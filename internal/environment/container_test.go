// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"testing"

	"github.com/docset-builder/docset-builder/internal/config"
	"github.com/docset-builder/docset-builder/internal/container"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// fakeEngine replays scripted run results and records every call.
type fakeEngine struct {
	hasImage bool
	results  []*container.RunResult
	stderr   []string
	runs     []container.RunOptions
	pulls    int
}

func (e *fakeEngine) Name() string { return "fake" }
func (e *fakeEngine) Available() bool { return true }
func (e *fakeEngine) Version(context.Context) (string, error) { return "1.0", nil }
func (e *fakeEngine) ImageExists(context.Context, string) (bool, error) { return e.hasImage, nil }

func (e *fakeEngine) Pull(context.Context, string, io.Writer, io.Writer) error {
	e.pulls++
	e.hasImage = true
	return nil
}

func (e *fakeEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	i := len(e.runs)
	e.runs = append(e.runs, opts)
	if i < len(e.stderr) && opts.Stderr != nil {
		fmt.Fprint(opts.Stderr, e.stderr[i])
	}
	if i < len(e.results) {
		return e.results[i], nil
	}
	return &container.RunResult{}, nil
}

func newTestContainerBuilder(engine container.Engine) *ContainerBuilder {
	b := NewContainerBuilder(engine, "python:3.12-slim")
	b.backoff = 0
	return b
}

func TestContainerBuilder_Build(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	engine := &fakeEngine{}
	b := newTestContainerBuilder(engine)

	err := b.Build(t.Context(), "arrow", repo, buildinfo.BuildInfo{
		BuildRoot:         filepath.Join(repo, "docs"),
		BuildDependencies: []string{"."},
		BuildCommands:     []string{"make html"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if engine.pulls != 1 {
		t.Errorf("pulls = %d, want 1 for a missing image", engine.pulls)
	}
	if len(engine.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(engine.runs))
	}

	run := engine.runs[0]
	if run.Image != "python:3.12-slim" || !run.Remove || run.WorkDir != MountPoint {
		t.Errorf("unexpected run options %+v", run)
	}
	if !slices.Equal(run.Command[:2], []string{"sh", "-c"}) {
		t.Errorf("Command = %v", run.Command[:2])
	}
	wantMount := container.VolumeMount{HostPath: repo, ContainerPath: MountPoint}
	if len(run.Volumes) != 1 || run.Volumes[0] != wantMount {
		t.Errorf("Volumes = %+v", run.Volumes)
	}
	if run.Env["HOME"] != "/tmp" {
		t.Errorf("HOME = %q", run.Env["HOME"])
	}
}

func TestContainerBuilder_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		hasImage: true,
		results:  []*container.RunResult{{ExitCode: 125}, {ExitCode: 1}, {}},
		stderr:   []string{"", "Could not resolve host: pypi.org", ""},
	}
	b := newTestContainerBuilder(engine)

	if err := b.Build(t.Context(), "attrs", t.TempDir(), buildinfo.BuildInfo{BuildCommands: []string{"tox -e docs"}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(engine.runs) != 3 {
		t.Errorf("runs = %d, want 3", len(engine.runs))
	}
	if engine.pulls != 0 {
		t.Errorf("pulls = %d, want 0 for a present image", engine.pulls)
	}
}

func TestContainerBuilder_BuildFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		hasImage: true,
		results:  []*container.RunResult{{ExitCode: 2}},
		stderr:   []string{"make: *** [html] Error 2"},
	}
	b := newTestContainerBuilder(engine)

	err := b.Build(t.Context(), "attrs", t.TempDir(), buildinfo.BuildInfo{BuildCommands: []string{"make html"}})
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error = %v, want *BuildError", err)
	}
	if buildErr.ExitCode != 2 || buildErr.Runtime != "container" || buildErr.Output != "make: *** [html] Error 2" {
		t.Errorf("BuildError = %+v", buildErr)
	}
	if len(engine.runs) != 1 {
		t.Errorf("runs = %d, want 1", len(engine.runs))
	}
}

func TestContainerBuilder_RejectsBuildRootOutsideRepository(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{hasImage: true}
	b := newTestContainerBuilder(engine)

	err := b.Build(t.Context(), "x", t.TempDir(), buildinfo.BuildInfo{
		BuildRoot:     t.TempDir(),
		BuildCommands: []string{"make html"},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(engine.runs) != 0 {
		t.Error("no container should run")
	}
}

func TestNew_Virtual(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	b, err := New(cfg, "/cache")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	virtual, ok := b.(*VirtualBuilder)
	if !ok {
		t.Fatalf("New() = %T, want *VirtualBuilder", b)
	}
	if got := virtual.VenvDir("arrow"); got != filepath.Join("/cache", VenvSubdir, "arrow") {
		t.Errorf("VenvDir() = %q", got)
	}
}

func TestNew_InvalidRuntime(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime = "native"
	if _, err := New(cfg, "/cache"); !errors.Is(err, config.ErrInvalidRuntimeMode) {
		t.Errorf("error = %v, want ErrInvalidRuntimeMode", err)
	}
}
