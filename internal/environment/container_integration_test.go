// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"github.com/docset-builder/docset-builder/internal/container"
	"github.com/docset-builder/docset-builder/internal/testutil"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// checkTestcontainersAvailable safely checks if testcontainers can reach an engine.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestContainerBuilder_Integration runs a real build script in a python image.
// It requires Docker or Podman and network access to pull the image.
func TestContainerBuilder_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := container.AutoDetectEngine()
	if err != nil {
		t.Skipf("skipping container integration test: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration test: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	repo := testutil.WriteTree(t, map[string]string{
		"docs/index.rst": "Title\n=====\n",
	})

	var stdout, stderr bytes.Buffer
	b := NewContainerBuilder(engine, "python:3.12-slim", WithOutput(&stdout, &stderr))
	err = b.Build(t.Context(), "demo", repo, buildinfo.BuildInfo{
		BuildRoot: filepath.Join(repo, "docs"),
		BuildCommands: []string{
			`python -c "import sys; print(sys.prefix)"`,
			"mkdir -p _build/html && cp index.rst _build/html/index.html",
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v\nstderr:\n%s", err, stderr.String())
	}

	if !strings.Contains(stdout.String(), "/tmp/venv") {
		t.Errorf("python did not run inside the venv, stdout = %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(repo, "docs", "_build", "html", "index.html")); err != nil {
		t.Errorf("build output missing on the host: %v", err)
	}
}
