// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/syntax"

	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// tailSize bounds the stderr kept for BuildError.Output.
const tailSize = 4 << 10

type (
	// step is one shell command and the directory it runs from.
	step struct {
		dir     string
		command string
		// dependency is set for pip install steps, for logging.
		dependency string
	}

	// tailWriter keeps the last tailSize bytes written to it.
	tailWriter struct {
		mu  sync.Mutex
		buf []byte
	}
)

// planSteps installs every build dependency from the repository root, then
// runs every build command from the build root.
func planSteps(repoRoot string, info buildinfo.BuildInfo) ([]step, error) {
	buildRoot := info.BuildRoot
	if buildRoot == "" {
		buildRoot = repoRoot
	}

	steps := make([]step, 0, len(info.BuildDependencies)+len(info.BuildCommands))
	for _, dep := range info.BuildDependencies {
		quoted, err := syntax.Quote(dep, syntax.LangPOSIX)
		if err != nil {
			return nil, fmt.Errorf("quote dependency %q: %w", dep, err)
		}
		steps = append(steps, step{dir: repoRoot, command: "pip install --upgrade " + quoted, dependency: dep})
	}
	for _, cmd := range info.BuildCommands {
		steps = append(steps, step{dir: buildRoot, command: cmd})
	}
	return steps, nil
}

// renderScript joins steps into one POSIX script. Each command runs in a
// subshell so a cd inside it does not leak into the next step. mapDir
// translates host directories, e.g. into the container mount.
func renderScript(prelude []string, steps []step, mapDir func(string) (string, error)) (string, error) {
	var b strings.Builder
	b.WriteString("set -e\n")
	for _, line := range prelude {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, s := range steps {
		dir, err := mapDir(s.dir)
		if err != nil {
			return "", err
		}
		quoted, err := syntax.Quote(dir, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote directory %q: %w", dir, err)
		}
		fmt.Fprintf(&b, "cd %s\n(\n%s\n)\n", quoted, s.command)
	}

	script := b.String()
	if _, err := syntax.NewParser().Parse(strings.NewReader(script), "build"); err != nil {
		return "", fmt.Errorf("build script syntax error: %w", err)
	}
	return script, nil
}

// containerDir maps a host path below repoRoot to the same path below mount.
func containerDir(repoRoot, mount string) func(string) (string, error) {
	return func(dir string) (string, error) {
		rel, err := filepath.Rel(repoRoot, dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("build directory %s is outside the repository %s", dir, repoRoot)
		}
		if rel == "." {
			return mount, nil
		}
		return mount + "/" + filepath.ToSlash(rel), nil
	}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - tailSize; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(p), nil
}

// String returns the retained output.
func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}
