// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/docset-builder/docset-builder/internal/container"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

const (
	// MountPoint is where the repository appears inside the container.
	MountPoint = "/src"

	containerVenv = "/tmp/venv"
	runAttempts   = 3
	runBackoff    = 2 * time.Second
)

// ContainerBuilder runs the whole build as one script in a throwaway
// container with the repository bind-mounted at MountPoint.
type ContainerBuilder struct {
	engine  container.Engine
	image   string
	opts    Options
	backoff time.Duration
}

// NewContainerBuilder creates a builder running image on engine.
func NewContainerBuilder(engine container.Engine, image string, opts ...Option) *ContainerBuilder {
	return &ContainerBuilder{
		engine:  engine,
		image:   image,
		opts:    newOptions(opts),
		backoff: runBackoff,
	}
}

// Name returns the runtime name.
func (b *ContainerBuilder) Name() string { return "container" }

// Script renders the shell script the container runs for info.
func (b *ContainerBuilder) Script(repoRoot string, info buildinfo.BuildInfo) (string, error) {
	steps, err := planSteps(repoRoot, info)
	if err != nil {
		return "", err
	}
	prelude := []string{
		"python3 -m venv " + containerVenv,
		"export VIRTUAL_ENV=" + containerVenv,
		"export PATH=" + containerVenv + "/bin:$PATH",
	}
	return renderScript(prelude, steps, containerDir(repoRoot, MountPoint))
}

// Build pulls the image when missing, then runs the build script. Engine
// failures that look transient are retried with exponential backoff.
func (b *ContainerBuilder) Build(ctx context.Context, pkg, repoRoot string, info buildinfo.BuildInfo) error {
	script, err := b.Script(repoRoot, info)
	if err != nil {
		return err
	}
	logger := log.With("package", pkg, "engine", b.engine.Name(), "image", b.image)

	if err := b.ensureImage(ctx); err != nil {
		return err
	}

	opts := container.RunOptions{
		Image:   b.image,
		Command: []string{"sh", "-c", script},
		WorkDir: MountPoint,
		Env:     map[string]string{"HOME": "/tmp", "PYTHONDONTWRITEBYTECODE": "1"},
		Volumes: []container.VolumeMount{{HostPath: repoRoot, ContainerPath: MountPoint}},
		User:    hostUser(),
		Remove:  true,
		Stdout:  b.opts.Stdout,
	}

	return container.RetryWithBackoff(ctx, runAttempts, b.backoff, func(attempt int) (bool, error) {
		tail := &tailWriter{}
		opts.Stderr = io.MultiWriter(b.opts.Stderr, tail)

		logger.Info("running documentation build", "attempt", attempt+1)
		result, err := b.engine.Run(ctx, opts)
		if err != nil {
			return container.IsTransientError(err), err
		}
		if result.Error != nil {
			return container.IsTransientError(result.Error), fmt.Errorf("run %s: %w", b.engine.Name(), result.Error)
		}
		if result.ExitCode != 0 {
			buildErr := &BuildError{Package: pkg, Runtime: b.Name(), ExitCode: result.ExitCode, Output: tail.String()}
			return container.IsTransientOutput(result.ExitCode, buildErr.Output), buildErr
		}
		return false, nil
	})
}

func (b *ContainerBuilder) ensureImage(ctx context.Context) error {
	exists, err := b.engine.ImageExists(ctx, b.image)
	if err != nil {
		return fmt.Errorf("check image %s: %w", b.image, err)
	}
	if exists {
		return nil
	}
	log.Info("pulling image", "image", b.image)
	return container.RetryWithBackoff(ctx, runAttempts, b.backoff, func(int) (bool, error) {
		err := b.engine.Pull(ctx, b.image, b.opts.Stdout, b.opts.Stderr)
		return container.IsTransientError(err), err
	})
}

// hostUser keeps build output in the mounted repository owned by the caller.
func hostUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return strconv.Itoa(os.Getuid()) + ":" + strconv.Itoa(os.Getgid())
}
