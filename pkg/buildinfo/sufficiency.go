// SPDX-License-Identifier: MPL-2.0

package buildinfo

// MissingFields returns the fields that must still be provided before a
// documentation build can be attempted, in a fixed order. icon_path is only
// required when the package uses an icon.
func MissingFields(info BuildInfo) []Field {
	var missing []Field
	if info.BuildRoot == "" {
		missing = append(missing, FieldBuildRoot)
	}
	if len(info.BuildDependencies) == 0 {
		missing = append(missing, FieldBuildDependencies)
	}
	if len(info.BuildCommands) == 0 {
		missing = append(missing, FieldBuildCommands)
	}
	if info.EntryPage == "" {
		missing = append(missing, FieldEntryPage)
	}
	if info.UsesIcon && info.IconPath == "" {
		missing = append(missing, FieldIconPath)
	}
	return missing
}

// IsSufficient reports whether info has every field required to build.
func IsSufficient(info BuildInfo) bool {
	return len(MissingFields(info)) == 0
}
