// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/docset-builder/docset-builder/internal/logging"
)

var (
	log = logging.Module("container")

	// ErrInvalidVolumeMount is the sentinel wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")

	// execCommand is the default command factory; tests replace it.
	execCommand ExecCommandFunc = exec.CommandContext
)

type (
	// ExecCommandFunc creates an exec.Cmd. It matches exec.CommandContext.
	ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

	// VolumeFormatFunc renders a mount for the -v flag.
	VolumeFormatFunc func(VolumeMount) string

	// RunArgsTransformer post-processes the full run argument list.
	RunArgsTransformer func(args []string) []string

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine holds the argument construction and execution shared by
	// the docker and podman engines.
	BaseCLIEngine struct {
		binaryPath         string
		execCommand        ExecCommandFunc
		volumeFormatter    VolumeFormatFunc
		runArgsTransformer RunArgsTransformer
	}

	// VolumeMount is a host directory bind-mounted into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		// SELinux is an explicit relabel option ("z" or "Z").
		SELinux string
	}

	// InvalidVolumeMountError is returned when a VolumeMount cannot be used.
	InvalidVolumeMountError struct {
		Value  VolumeMount
		Reason string
	}
)

func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %q: %s", e.Value.String(), e.Reason)
}

// Unwrap returns ErrInvalidVolumeMount for errors.Is() compatibility.
func (e *InvalidVolumeMountError) Unwrap() error { return ErrInvalidVolumeMount }

// Validate checks that both paths are set and the container path is absolute.
func (v VolumeMount) Validate() error {
	switch {
	case strings.TrimSpace(v.HostPath) == "":
		return &InvalidVolumeMountError{Value: v, Reason: "host path must not be empty"}
	case !strings.HasPrefix(v.ContainerPath, "/"):
		return &InvalidVolumeMountError{Value: v, Reason: "container path must be absolute"}
	case v.SELinux != "" && v.SELinux != "z" && v.SELinux != "Z":
		return &InvalidVolumeMountError{Value: v, Reason: "selinux label must be z or Z"}
	}
	return nil
}

// String renders the mount in host:container[:options] form.
func (v VolumeMount) String() string {
	var b strings.Builder
	b.WriteString(v.HostPath)
	b.WriteString(":")
	b.WriteString(v.ContainerPath)

	var options []string
	if v.ReadOnly {
		options = append(options, "ro")
	}
	if v.SELinux != "" {
		options = append(options, v.SELinux)
	}
	if len(options) > 0 {
		b.WriteString(":")
		b.WriteString(strings.Join(options, ","))
	}
	return b.String()
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithVolumeFormatter sets a custom volume formatter function.
func WithVolumeFormatter(fn VolumeFormatFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.volumeFormatter = fn
	}
}

// WithRunArgsTransformer sets a custom run args transformer.
func WithRunArgsTransformer(fn RunArgsTransformer) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.runArgsTransformer = fn
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:         binaryPath,
		execCommand:        execCommand,
		volumeFormatter:    VolumeMount.String,
		runArgsTransformer: func(args []string) []string { return args },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// RunArgs constructs arguments for a container run command.
// Environment variables are emitted in key order so the command line is stable.
//
// Generated command: <binary> run [options] <image> [command...]
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{"run"}

	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.User != "" {
		args = append(args, "--user", opts.User)
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+opts.Env[k])
	}

	for _, v := range opts.Volumes {
		args = append(args, "-v", e.volumeFormatter(v))
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	return e.runArgsTransformer(args)
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	if err := e.CreateCommand(ctx, args...).Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out.String(), nil
}

// available reports whether the binary exists and answers a version query.
func (e *BaseCLIEngine) available(versionArgs ...string) bool {
	if e.binaryPath == "" {
		return false
	}
	return e.CreateCommand(context.Background(), versionArgs...).Run() == nil
}

// run executes a container and converts the exit status into a RunResult.
// A non-zero exit code is not an error; failing to start the engine is.
func (e *BaseCLIEngine) run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	for _, v := range opts.Volumes {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	args := e.RunArgs(opts)
	log.Debug("running container", "binary", e.binaryPath, "args", args)

	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	result := &RunResult{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			result.Error = err
		}
	}
	return result, nil
}

// pull fetches an image, streaming progress to the given writers.
func (e *BaseCLIEngine) pull(ctx context.Context, image string, opts RunOptions) error {
	cmd := e.CreateCommand(ctx, "pull", image)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pull %s: %w", image, err)
	}
	return nil
}
