// SPDX-License-Identifier: MPL-2.0

// Package docset turns built HTML documentation into an installed docset:
// it locates the build output, packages it with doc2dash and installs the
// result into the documentation viewer's library.
package docset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/internal/repotree"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

var (
	log = logging.Module("docset")

	// ErrBuiltDocsNotFound is returned when no candidate holds _build/html.
	ErrBuiltDocsNotFound = errors.New("built documentation not found")

	// builtSubdir is looked up below every candidate directory.
	builtSubdir = filepath.Join("_build", "html")

	errFound = errors.New("found")
)

// LocateBuiltDocs returns the first existing _build/html below, in order:
// the build root, root/doc, root/docs, then every directory of the
// repository in walk order starting with root itself.
func LocateBuiltDocs(info buildinfo.BuildInfo, root string) (string, error) {
	var candidates []string
	if info.BuildRoot != "" {
		candidates = append(candidates, info.BuildRoot)
	}
	candidates = append(candidates, filepath.Join(root, "doc"), filepath.Join(root, "docs"), root)

	for _, dir := range candidates {
		if html := filepath.Join(dir, builtSubdir); isDir(html) {
			return html, nil
		}
	}

	var found string
	err := repotree.Open(root).Walk(func(rel string, d fs.DirEntry) error {
		if !d.IsDir() {
			return nil
		}
		if html := filepath.Join(root, filepath.FromSlash(rel), builtSubdir); isDir(html) {
			found = html
			return errFound
		}
		return nil
	})
	if found != "" {
		return found, nil
	}
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("search %s for built docs: %w", root, err)
	}
	return "", fmt.Errorf("%w: no %s below %s", ErrBuiltDocsNotFound, builtSubdir, root)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
