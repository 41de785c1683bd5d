// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/docset-builder/docset-builder/internal/app"
	"github.com/docset-builder/docset-builder/internal/config"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

// staticConfig returns a fixed configuration rooted in temporary directories.
type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return s.cfg, nil
}

type recordingPipeline struct {
	packages []string
	opts     app.InstallOptions
	wire     app.WireOptions
	results  []app.Result
	err      error
}

func (r *recordingPipeline) Install(_ context.Context, packages []string, opts app.InstallOptions) ([]app.Result, error) {
	r.packages = packages
	r.opts = opts
	return r.results, r.err
}

type testCLI struct {
	app      *App
	pipeline *recordingPipeline
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	cfgFile  string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.LibraryDir = config.DirPath(filepath.Join(dir, "docsets"))
	cfg.CacheDir = config.DirPath(filepath.Join(dir, "cache"))

	c := &testCLI{
		pipeline: &recordingPipeline{},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		cfgFile:  filepath.Join(dir, "config.cue"),
	}
	c.app = NewApp(Dependencies{
		Config: staticConfig{cfg: cfg},
		Pipelines: func(_ *config.Config, _ config.Paths, opts app.WireOptions) (InstallService, error) {
			c.pipeline.wire = opts
			return c.pipeline, nil
		},
		Stdout: c.stdout,
		Stderr: c.stderr,
	})
	return c
}

func (c *testCLI) run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(c.app)
	root.SetArgs(append([]string{"--config", c.cfgFile}, args...))
	return root.ExecuteContext(t.Context())
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}))
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"install", "inspect", "config"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	got := dedupe([]string{"attrs", "requests", "attrs", "click"})
	if want := []string{"attrs", "requests", "click"}; !slices.Equal(got, want) {
		t.Errorf("dedupe() = %v, want %v", got, want)
	}
}
