// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/docset-builder/docset-builder/internal/testutil"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Runtime != RuntimeVirtual {
		t.Errorf("expected default runtime to be virtual, got %s", cfg.Runtime)
	}
	if cfg.Container.Engine != ContainerEnginePodman {
		t.Errorf("expected default container engine to be podman, got %s", cfg.Container.Engine)
	}
	if cfg.Container.Image != "python:3.12-slim" {
		t.Errorf("unexpected default image %q", cfg.Container.Image)
	}
	if cfg.Registry.URL != "https://pypi.org" || !cfg.Registry.UseCache {
		t.Errorf("unexpected registry defaults %+v", cfg.Registry)
	}
	if cfg.LibraryDir != "" || cfg.CacheDir != "" || cfg.OverridesFile != "" {
		t.Error("directory settings should default to empty")
	}
	if cfg.UI.Verbose {
		t.Error("expected default verbose to be false")
	}
}

//nolint:paralleltest // sets environment variables
func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}

	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))
	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

//nolint:paralleltest // mutates the package-level override
func TestSetConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Errorf("ConfigDir() = %q, %v; want %q", got, err, dir)
	}
}

//nolint:paralleltest // sets environment variables
func TestConfig_Paths(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	data := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Cleanup(testutil.SetHomeDir(t, home))

	paths, err := DefaultConfig().Paths("/etc/docset-builder")
	if err != nil {
		t.Fatalf("Paths() error: %v", err)
	}
	want := Paths{
		ConfigDir:      "/etc/docset-builder",
		LibraryDir:     filepath.Join(data, "Zeal", "Zeal", "docsets"),
		CacheDir:       filepath.Join(data, AppName),
		OverridesFile:  "/etc/docset-builder/overrides.cue",
		InstalledIndex: "/etc/docset-builder/installed_docsets.json",
	}
	if paths != want {
		t.Errorf("Paths() = %+v, want %+v", paths, want)
	}

	cfg := DefaultConfig()
	cfg.LibraryDir = "~/Dash/DocSets"
	cfg.CacheDir = "/var/cache/dsb"
	cfg.OverridesFile = "~/my-overrides.cue"
	paths, err = cfg.Paths("/etc/docset-builder")
	if err != nil {
		t.Fatalf("Paths() error: %v", err)
	}
	if paths.LibraryDir != filepath.Join(home, "Dash", "DocSets") {
		t.Errorf("LibraryDir = %q", paths.LibraryDir)
	}
	if paths.CacheDir != "/var/cache/dsb" {
		t.Errorf("CacheDir = %q", paths.CacheDir)
	}
	if paths.OverridesFile != filepath.Join(home, "my-overrides.cue") {
		t.Errorf("OverridesFile = %q", paths.OverridesFile)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), AppName)

	path, written, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if !written || path != filepath.Join(dir, "config.cue") {
		t.Fatalf("CreateDefaultConfig() = %q, %v", path, written)
	}

	// The generated file must load back to the defaults.
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	def := DefaultConfig()
	if cfg.Runtime != def.Runtime || cfg.Container != def.Container || cfg.Registry != def.Registry {
		t.Errorf("round-tripped config = %+v", cfg)
	}

	if err := os.WriteFile(path, []byte(`runtime: "container"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, written, err = CreateDefaultConfig(dir); err != nil || written {
		t.Errorf("existing file should be kept, written=%v err=%v", written, err)
	}
}

func TestGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.LibraryDir = "/srv/docsets"
	cfg.Runtime = RuntimeContainer

	out := GenerateCUE(cfg)
	for _, want := range []string{
		`library_dir: "/srv/docsets"`,
		`// cache_dir:`,
		`runtime: "container"`,
		`engine: "podman"`,
		`use_cache: true`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}
}
