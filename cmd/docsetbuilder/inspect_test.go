// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/docset-builder/docset-builder/internal/testutil"
)

const toxDocs = `[testenv:docs]
changedir = docs
deps =
    sphinx
commands =
    sphinx-build -b html . _build/html
`

func TestInspectCommand_JSON(t *testing.T) {
	t.Parallel()

	repo := testutil.WriteTree(t, map[string]string{
		"tox.ini":        toxDocs,
		"docs/index.rst": "Demo\n====\n",
	})
	c := newTestCLI(t)
	if err := c.run(t, "inspect", "--json", "demo", repo); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var report inspectReport
	if err := json.Unmarshal(c.stdout.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, c.stdout.String())
	}
	if report.Package != "demo" {
		t.Errorf("Package = %q", report.Package)
	}
	if len(report.BuildCommands) != 1 || !strings.HasPrefix(report.BuildCommands[0], "sphinx-build") {
		t.Errorf("BuildCommands = %q", report.BuildCommands)
	}
	if report.Sources["build_commands"] == "" {
		t.Errorf("Sources = %v, want build_commands attributed", report.Sources)
	}
}

func TestInspectCommand_Table(t *testing.T) {
	t.Parallel()

	repo := testutil.WriteTree(t, map[string]string{"README.md": "nothing to build\n"})
	c := newTestCLI(t)
	if err := c.run(t, "inspect", "demo", repo); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := c.stdout.String()
	for _, want := range []string{"Build information for demo", "build_root", "entry_page", "Missing:", "build_commands"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectCommand_NeedsTwoArgs(t *testing.T) {
	t.Parallel()

	c := newTestCLI(t)
	if err := c.run(t, "inspect", "demo"); err == nil {
		t.Fatal("expected an argument error")
	}
}
