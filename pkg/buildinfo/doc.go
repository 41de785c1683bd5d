// SPDX-License-Identifier: MPL-2.0

// Package buildinfo defines the record describing how to build a package's
// documentation, the set-once Builder used to assemble it, and the
// sufficiency check the pipeline runs before attempting a build.
//
// Every field of a BuildInfo is written at most once. The first source to
// provide a non-empty value wins; later writes are dropped and kept in
// BuildInfo.Shadowed so that `docset-builder inspect` can show which
// heuristics were overruled.
package buildinfo
