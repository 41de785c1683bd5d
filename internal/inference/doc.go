// SPDX-License-Identifier: MPL-2.0

// Package inference works out how to build a repository's documentation.
//
// An Engine seeds a buildinfo.Builder from the override table, records
// every dependency the repository declares, then runs a fixed list of
// Extractors (tox.ini, the root Makefile, a Sphinx docs/Makefile) followed
// by the entry-page and icon passes. Every step only fills fields that are
// still unset, so earlier sources always win.
//
// Inference only reads the local checkout. It never touches the network or
// runs external processes, and an Engine can serve several packages
// concurrently.
package inference
