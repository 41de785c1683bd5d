// SPDX-License-Identifier: MPL-2.0

// Package repotree walks a checked-out repository while honouring the root
// .gitignore, and matches repository-relative paths against doublestar
// patterns.
package repotree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnores are skipped even without a .gitignore.
var defaultIgnores = []string{
	".git/",
	".tox/",
	".nox/",
	"node_modules/",
	"__pycache__/",
}

// ErrInvalidPattern is returned for a malformed doublestar pattern.
var ErrInvalidPattern = errors.New("invalid glob pattern")

type (
	// Tree is a repository rooted at Root.
	Tree struct {
		Root    string
		ignorer *ignore.GitIgnore
	}

	// WalkFunc receives a slash-separated path relative to the tree root.
	WalkFunc func(rel string, d fs.DirEntry) error
)

// Open prepares a walk over root. A missing or unreadable .gitignore only
// leaves the default ignores in place.
func Open(root string) *Tree {
	patterns := append([]string(nil), defaultIgnores...)
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		patterns = append(patterns, strings.Split(string(data), "\n")...)
	}
	return &Tree{Root: root, ignorer: ignore.CompileIgnoreLines(patterns...)}
}

// Ignored reports whether rel (slash-separated, relative to Root) is excluded.
func (t *Tree) Ignored(rel string, isDir bool) bool {
	if isDir {
		rel += "/"
	}
	return t.ignorer.MatchesPath(rel)
}

// Walk visits every non-ignored entry below Root in lexical order. The root
// itself is not reported. Ignored directories are not descended into.
func (t *Tree) Walk(fn WalkFunc) error {
	return t.WalkFrom("", fn)
}

// WalkFrom is Walk restricted to the subdirectory sub (slash-separated,
// relative to Root). Paths passed to fn stay relative to Root so ignore
// rules apply unchanged. A missing or ignored sub is walked as empty.
func (t *Tree) WalkFrom(sub string, fn WalkFunc) error {
	start := t.Root
	if sub != "" {
		if t.Ignored(sub, true) {
			return nil
		}
		start = filepath.Join(t.Root, filepath.FromSlash(sub))
		if info, err := os.Stat(start); err != nil || !info.IsDir() {
			return nil
		}
	}
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == start {
			return nil
		}
		rel, err := filepath.Rel(t.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if t.Ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(rel, d)
	})
}

// Glob returns the non-ignored regular files whose relative path matches
// any of patterns, in walk order. Each file is reported once.
func (t *Tree) Glob(patterns ...string) ([]string, error) {
	if err := ValidatePatterns(patterns); err != nil {
		return nil, err
	}
	var matches []string
	err := t.Walk(func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		if MatchAny(patterns, rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	return matches, err
}

// MatchAny reports whether rel matches one of patterns.
func MatchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// ValidatePatterns checks that every pattern is a valid doublestar glob.
func ValidatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pat)
		}
	}
	return nil
}
