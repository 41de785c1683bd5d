// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "wrapped deadline", err: fmt.Errorf("run: %w", context.DeadlineExceeded), want: false},
		{name: "generic error", err: errors.New("no such image"), want: false},
		{name: "exit code 1", err: newExitError(t, 1), want: false},
		{name: "exit code 125", err: newExitError(t, 125), want: true},
		{name: "wrapped exit code 125", err: fmt.Errorf("run: %w", newExitError(t, 125)), want: true},
		{name: "ping_group_range", err: errors.New("error reading /proc/sys/net/ipv4/ping_group_range"), want: true},
		{name: "dns", err: errors.New("Could not resolve host: files.pythonhosted.org"), want: true},
		{name: "tls timeout", err: errors.New("net/http: TLS handshake timeout"), want: true},
		{name: "overlay mount", err: errors.New("error creating overlay mount to /var/lib/containers"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exitCode int
		stderr   string
		want     bool
	}{
		{name: "engine failure", exitCode: 125, want: true},
		{name: "build failure", exitCode: 2, stderr: "make: *** [html] Error 2", want: false},
		{name: "pip dns", exitCode: 1, stderr: "Temporary failure resolving 'pypi.org'", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransientOutput(tt.exitCode, tt.stderr); got != tt.want {
				t.Errorf("IsTransientOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}

// newExitError runs a shell that exits with code and returns its *exec.ExitError.
func newExitError(t *testing.T, code int) *exec.ExitError {
	t.Helper()
	err := exec.CommandContext(t.Context(), "sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	return exitErr
}
