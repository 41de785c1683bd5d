// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are engine or network messages that usually clear up on
// a second attempt.
var transientMarkers = []string{
	// rootless podman races
	"ping_group_range",
	"OCI runtime error",
	// image pulls and pip downloads
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"TLS handshake timeout",
	// overlay storage
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether err is a container engine failure that
// may succeed on retry. Context cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Exit code 125 is the engine's own failure, not the container's.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransientOutput applies the same markers to captured engine stderr.
func IsTransientOutput(exitCode int, stderr string) bool {
	if exitCode == 125 {
		return true
	}
	for _, marker := range transientMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}
