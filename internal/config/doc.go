// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/docset-builder/config.cue (or the
// platform equivalent, see ConfigDir), validated against the embedded CUE
// schema (config_schema.cue) and merged over built-in defaults. Environment
// variables prefixed with DOCSET_BUILDER_ override individual keys.
//
// Settings cover the docset library directory, the cache directory holding
// package metadata, repositories, virtual environments and icons, the build
// runtime (virtual environment or container), the package index client and
// the location of the user overrides file.
package config
