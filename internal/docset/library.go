// SPDX-License-Identifier: MPL-2.0

package docset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/docset-builder/docset-builder/internal/issue"
)

type (
	// Library is the documentation viewer's docsets directory together with
	// the index of docsets installed by this tool.
	Library struct {
		fs        afero.Fs
		dir       string
		indexPath string
	}

	// LibraryOption configures a Library.
	LibraryOption func(*Library)
)

// WithFs replaces the filesystem, for tests.
func WithFs(fs afero.Fs) LibraryOption {
	return func(l *Library) { l.fs = fs }
}

// NewLibrary creates a library rooted at dir recording installs in indexPath.
func NewLibrary(dir, indexPath string, opts ...LibraryOption) *Library {
	l := &Library{fs: afero.NewOsFs(), dir: dir, indexPath: indexPath}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Install moves docsetDir into the library, replacing an existing docset of
// the same name, and records version in the index. It returns the installed path.
func (l *Library) Install(docsetDir, version string) (string, error) {
	base := filepath.Base(docsetDir)
	name := strings.TrimSuffix(base, Extension)
	dest := filepath.Join(l.dir, base)

	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return "", notWritable(l.dir, err)
	}
	if exists, _ := afero.Exists(l.fs, dest); exists {
		log.Info("removing previously installed docset", "path", dest)
		if err := l.fs.RemoveAll(dest); err != nil {
			return "", notWritable(l.dir, err)
		}
	}
	if err := l.move(docsetDir, dest); err != nil {
		return "", notWritable(l.dir, err)
	}

	index, err := l.Installed()
	if err != nil {
		return "", err
	}
	index[name] = version
	if err := l.writeIndex(index); err != nil {
		return "", err
	}
	log.Info("docset installed", "name", name, "version", version, "path", dest)
	return dest, nil
}

// Installed returns the name to version index. A missing index is empty.
func (l *Library) Installed() (map[string]string, error) {
	data, err := afero.ReadFile(l.fs, l.indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read installed docsets index: %w", err)
	}
	index := map[string]string{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse installed docsets index %s: %w", l.indexPath, err)
	}
	return index, nil
}

func (l *Library) writeIndex(index map[string]string) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode installed docsets index: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.indexPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := afero.WriteFile(l.fs, l.indexPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write installed docsets index: %w", err)
	}
	return nil
}

// move renames src to dest, copying across filesystems when rename fails.
func (l *Library) move(src, dest string) error {
	if err := l.fs.Rename(src, dest); err == nil {
		return nil
	}
	if err := l.copyTree(src, dest); err != nil {
		_ = l.fs.RemoveAll(dest)
		return err
	}
	return l.fs.RemoveAll(src)
}

func (l *Library) copyTree(src, dest string) error {
	return afero.Walk(l.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return l.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(l.fs, target, data, info.Mode().Perm())
	})
}

func notWritable(dir string, err error) error {
	return issue.NewErrorContext().
		WithOperation("install docset").
		WithResource(dir).
		WithSuggestion("Check that library_dir points at a writable directory").
		WithIssue(issue.LibraryDirNotWritableId).
		Wrap(err).
		BuildError()
}
