// SPDX-License-Identifier: MPL-2.0

package inference

import (
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

const (
	toxFileName = "tox.ini"
	// toxDirPlaceholder is tox's substitution for the tox.ini directory.
	toxDirPlaceholder = "{toxinidir}"
)

// SourceTox marks values read from tox.ini.
const SourceTox buildinfo.Source = "tox.ini"

// ToxExtractor reads the first tox environment whose section name
// contains "docs".
type ToxExtractor struct{}

// Name implements Extractor.
func (ToxExtractor) Name() string { return toxFileName }

// Extract implements Extractor. A tox.ini that cannot be parsed is logged
// and ignored.
func (ToxExtractor) Extract(b *buildinfo.Builder, root string) error {
	path := filepath.Join(root, toxFileName)
	if !isFile(path) {
		return nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		SkipUnrecognizableLines:    true,
	}, path)
	if err != nil {
		log.Warn("could not parse tox.ini", "file", path, "error", err)
		return nil
	}

	var section *ini.Section
	for _, s := range cfg.Sections() {
		if strings.Contains(s.Name(), "docs") {
			section = s
			break
		}
	}
	if section == nil {
		log.Debug("no docs environment in tox.ini", "file", path)
		return nil
	}

	dir := filepath.Dir(path)
	value := func(key string) string {
		if !section.HasKey(key) {
			return ""
		}
		return strings.ReplaceAll(section.Key(key).String(), toxDirPlaceholder, dir)
	}

	if changedir := strings.TrimSpace(value("changedir")); changedir != "" {
		if !filepath.IsAbs(changedir) {
			changedir = filepath.Join(dir, changedir)
		}
		b.SetBuildRoot(changedir, SourceTox)
	}
	b.SetBuildDependencies(splitLines(value("deps")), SourceTox)
	b.SetBuildCommands(splitLines(value("commands")), SourceTox)

	log.Debug("read tox environment", "section", section.Name())
	return nil
}

// splitLines splits a multi-line ini value into trimmed, non-empty,
// non-comment lines.
func splitLines(value string) []string {
	var out []string
	for line := range strings.SplitSeq(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
