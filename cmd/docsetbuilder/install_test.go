// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/docset-builder/docset-builder/internal/app"
)

func TestInstallCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		args          []string
		wantPackages  []string
		wantBuildOnly bool
		wantNoCache   bool
	}{
		{name: "defaults", args: []string{"install", "attrs"}, wantPackages: []string{"attrs"}},
		{name: "build only short", args: []string{"install", "-b", "attrs", "click"}, wantPackages: []string{"attrs", "click"}, wantBuildOnly: true},
		{name: "build only long", args: []string{"install", "--build-only", "attrs"}, wantPackages: []string{"attrs"}, wantBuildOnly: true},
		{name: "no cache", args: []string{"install", "--no-cache", "attrs", "attrs"}, wantPackages: []string{"attrs"}, wantNoCache: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCLI(t)
			if err := c.run(t, tt.args...); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if !slices.Equal(c.pipeline.packages, tt.wantPackages) {
				t.Errorf("packages = %v, want %v", c.pipeline.packages, tt.wantPackages)
			}
			if c.pipeline.opts.BuildOnly != tt.wantBuildOnly {
				t.Errorf("BuildOnly = %v, want %v", c.pipeline.opts.BuildOnly, tt.wantBuildOnly)
			}
			if c.pipeline.wire.NoCache != tt.wantNoCache {
				t.Errorf("NoCache = %v, want %v", c.pipeline.wire.NoCache, tt.wantNoCache)
			}
		})
	}
}

func TestInstallCommand_RequiresPackage(t *testing.T) {
	t.Parallel()

	c := newTestCLI(t)
	if err := c.run(t, "install"); err == nil {
		t.Fatal("expected an argument error")
	}
	if c.pipeline.packages != nil {
		t.Error("pipeline should not run")
	}
}

func TestInstallCommand_RejectsInvalidPackageNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{name: "plain", pkg: "attrs"},
		{name: "dots dashes underscores", pkg: "zope.interface-x_y"},
		{name: "single character", pkg: "x"},
		{name: "mixed case", pkg: "PyYAML"},
		{name: "parent traversal", pkg: "../x", wantErr: true},
		{name: "path separator", pkg: "a/b", wantErr: true},
		{name: "dot only", pkg: "..", wantErr: true},
		{name: "leading dash", pkg: "-attrs", wantErr: true},
		{name: "trailing dot", pkg: "attrs.", wantErr: true},
		{name: "specifier", pkg: "attrs>=23", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCLI(t)
			err := c.run(t, "install", "--", tt.pkg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
			if tt.wantErr && c.pipeline.packages != nil {
				t.Errorf("pipeline ran with %v", c.pipeline.packages)
			}
		})
	}
}

func TestInstallCommand_ReportsResultsAndError(t *testing.T) {
	t.Parallel()

	c := newTestCLI(t)
	failure := errors.New("requests: boom")
	c.pipeline.results = []app.Result{{Package: "attrs", Version: "23.1.0", Docset: "/lib/attrs.docset", Installed: true}}
	c.pipeline.err = failure

	err := c.run(t, "install", "attrs", "requests")
	if !errors.Is(err, failure) {
		t.Errorf("run() error = %v, want %v", err, failure)
	}
	out := c.stdout.String()
	if !strings.Contains(out, "Installed") || !strings.Contains(out, "attrs") || !strings.Contains(out, "/lib/attrs.docset") {
		t.Errorf("stdout = %q", out)
	}
}

func TestInstallCommand_VerboseStreamsBuildOutput(t *testing.T) {
	t.Parallel()

	c := newTestCLI(t)
	if err := c.run(t, "--verbose", "install", "attrs"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if c.pipeline.wire.Stdout == nil || c.pipeline.wire.Stderr == nil {
		t.Error("verbose runs should forward build output")
	}
}
