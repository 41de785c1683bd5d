// SPDX-License-Identifier: MPL-2.0

package inference

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/docset-builder/docset-builder/internal/repotree"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// Source markers for the auxiliary passes.
const (
	SourceEntryPage  buildinfo.Source = "entry-page"
	SourceIconSearch buildinfo.Source = "icon-search"
)

// DefaultEntryPage is the page Sphinx and MkDocs write at the output root.
const DefaultEntryPage = "index.html"

var (
	// docGenerators are the documentation tools recognised in dependency
	// specifiers.
	docGenerators = []string{"sphinx", "mkdocs"}

	// iconNames are matched case-insensitively against file names.
	iconNames = []string{"icon.png", "logo.png", "favicon.png", "logo.svg", "favicon.ico"}

	// iconDirs are searched in order; "" is the repository root.
	iconDirs = []string{"docs", "doc", ""}

	errIconFound = errors.New("icon found")
)

// IsDocGenerator reports whether spec mentions a known documentation
// generator. This is a plain case-sensitive substring test, so any
// specifier containing "sphinx" matches, including unrelated packages.
func IsDocGenerator(spec string) bool {
	for _, gen := range docGenerators {
		if strings.Contains(spec, gen) {
			return true
		}
	}
	return false
}

// applyEntryPage sets the conventional entry page when a documentation
// generator is among the collected dependencies.
func applyEntryPage(b *buildinfo.Builder) {
	if b.IsSet(buildinfo.FieldEntryPage) {
		return
	}
	if slices.ContainsFunc(b.AllDependencies(), IsDocGenerator) {
		b.SetEntryPage(DefaultEntryPage, SourceEntryPage)
	}
}

// applyIconSearch looks for an icon file when one is wanted and none is
// known yet.
func applyIconSearch(b *buildinfo.Builder, root string) {
	if !b.UsesIcon() || b.IsSet(buildinfo.FieldIconPath) {
		return
	}
	if icon := FindIcon(root); icon != "" {
		b.SetIconPath(icon, SourceIconSearch)
	}
}

// FindIcon returns the absolute path of the first icon-like file under
// docs/, doc/ and then the whole repository, each walked in lexical order.
// It returns "" when there is none.
func FindIcon(root string) string {
	tree := repotree.Open(root)
	var found string
	for _, dir := range iconDirs {
		err := tree.WalkFrom(dir, func(rel string, d fs.DirEntry) error {
			if d.IsDir() || !slices.Contains(iconNames, strings.ToLower(path.Base(rel))) {
				return nil
			}
			found = filepath.Join(root, filepath.FromSlash(rel))
			return errIconFound
		})
		if found != "" {
			return found
		}
		if err != nil {
			log.Debug("icon search stopped", "dir", dir, "error", err)
		}
	}
	return ""
}
