// SPDX-License-Identifier: MPL-2.0

package inference

import (
	"os"
	"path/filepath"

	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// Extractor reads one kind of build description from a repository and
// fills the unset recipe fields of b. A missing description is not an
// error.
type Extractor interface {
	Name() string
	Extract(b *buildinfo.Builder, root string) error
}

// DefaultExtractors returns the extractors in priority order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		ToxExtractor{},
		MakefileExtractor{},
		DocsMakefileExtractor{},
	}
}

// recipeComplete reports whether nothing is left for an extractor to fill.
func recipeComplete(b *buildinfo.Builder) bool {
	return b.IsSet(buildinfo.FieldBuildRoot) &&
		b.IsSet(buildinfo.FieldBuildDependencies) &&
		b.IsSet(buildinfo.FieldBuildCommands)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// installable reports whether pip can install the repository itself.
func installable(root string) bool {
	return isFile(filepath.Join(root, "pyproject.toml")) || isFile(filepath.Join(root, "setup.py"))
}
