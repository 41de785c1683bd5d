// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for docset-builder.
//
// The root command wires configuration, logging and error rendering; the
// install, inspect and config subcommands delegate to internal/app and
// internal/config.
package cmd
