// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Both user-editable files of docset-builder (config.cue and overrides.cue)
// go through the same three steps: compile the schema, unify the user data
// with the root definition, then validate and decode into a Go value.
//
//	//go:embed overrides_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[File](schema, data, "#Overrides",
//	    cueutil.WithFilename("overrides.cue"))
package cueutil
