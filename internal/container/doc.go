// SPDX-License-Identifier: MPL-2.0

// Package container wraps the Docker and Podman command-line clients.
//
// The Engine interface covers what a documentation build needs: running a
// throwaway container with the repository mounted, and checking for or
// pulling the base image. DockerEngine and PodmanEngine embed BaseCLIEngine
// for argument construction and command execution.
//
// NewEngine selects the preferred engine and falls back to the other one if
// it is unavailable. AutoDetectEngine tries Podman first.
package container
