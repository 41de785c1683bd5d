// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// selinuxEnforcePath is read to decide whether mounts need a relabel option.
var selinuxEnforcePath = "/sys/fs/selinux/enforce"

// PodmanEngine implements the Engine interface using Podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
// On Linux with SELinux enforcing, volume mounts are labeled with :z, and
// rootless runs keep the caller's uid so build output stays owned by the user.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")

	allOpts := append([]BaseCLIEngineOption{
		WithVolumeFormatter(addSELinuxLabel),
		WithRunArgsTransformer(keepUserNamespace),
	}, opts...)

	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, allOpts...),
	}
}

// Name returns the engine name.
func (e *PodmanEngine) Name() string {
	return string(EngineTypePodman)
}

// Available checks if Podman is available.
func (e *PodmanEngine) Available() bool {
	return e.available("version", "--format", "{{.Version}}")
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Run runs a command in a container.
func (e *PodmanEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	return e.run(ctx, opts)
}

// ImageExists checks if an image exists.
func (e *PodmanEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "exists", image)
	return err == nil, nil
}

// Pull fetches an image.
func (e *PodmanEngine) Pull(ctx context.Context, image string, stdout, stderr io.Writer) error {
	return e.pull(ctx, image, RunOptions{Stdout: stdout, Stderr: stderr})
}

func isSELinuxEnabled() bool {
	data, err := os.ReadFile(selinuxEnforcePath)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// addSELinuxLabel renders the mount with a :z label when SELinux is enforcing
// and the mount carries no explicit label.
func addSELinuxLabel(v VolumeMount) string {
	if v.SELinux == "" && isSELinuxEnabled() {
		v.SELinux = "z"
	}
	return v.String()
}

// keepUserNamespace inserts --userns=keep-id right after "run" when an
// explicit --user is requested, so the mapped uid exists in the container.
func keepUserNamespace(args []string) []string {
	if len(args) == 0 || args[0] != "run" {
		return args
	}
	// RunArgs emits --user before any other option except --rm
	for i := 1; i < len(args) && i <= 2; i++ {
		if args[i] == "--user" {
			out := make([]string, 0, len(args)+1)
			out = append(out, "run", "--userns=keep-id")
			return append(out, args[1:]...)
		}
	}
	return args
}
