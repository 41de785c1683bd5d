// SPDX-License-Identifier: MPL-2.0

// Package app runs the per-package install pipeline: registry lookup,
// repository sync, build inference, documentation build, docset packaging
// and installation into the viewer library.
package app
