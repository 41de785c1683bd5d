// SPDX-License-Identifier: MPL-2.0

// Package registry looks up package metadata on the Python package index.
//
// Only two facts are needed to build documentation: where the source
// repository lives and which release is the latest. Both can be pinned in
// the override table, in which case the index is not consulted for them.
// Successful lookups are cached as JSON under <cache_dir>/pypi/.
package registry
