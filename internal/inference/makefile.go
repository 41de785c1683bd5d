// SPDX-License-Identifier: MPL-2.0

package inference

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/makefile"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

// Source markers for the Makefile extractors.
const (
	SourceMakefile     buildinfo.Source = "Makefile"
	SourceDocsMakefile buildinfo.Source = "docs/Makefile"
)

// Conventional target names, concatenated in this order.
var makefileTargets = []string{"init", "docs"}

// installSelf is the build dependency used when the repository is itself
// installable: pip installs the package with its declared dependencies.
var installSelf = []string{"."}

// docsDirs are searched for a Sphinx-style makefile, in order.
var docsDirs = []string{"docs", "doc"}

type (
	// MakefileExtractor reads the init and docs targets of the root Makefile.
	MakefileExtractor struct{}

	// DocsMakefileExtractor recognises the makefile sphinx-quickstart drops
	// into docs/ and builds with its html target.
	DocsMakefileExtractor struct{}
)

// Name implements Extractor.
func (MakefileExtractor) Name() string { return makefile.FileName }

// Extract implements Extractor. A prerequisite cycle among targets is
// returned as *makefile.CycleError.
func (MakefileExtractor) Extract(b *buildinfo.Builder, root string) error {
	path := filepath.Join(root, makefile.FileName)
	mf, err := makefile.ParseFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		log.Warn("could not read Makefile", "file", path, "error", err)
		return nil
	}

	present := false
	for _, name := range makefileTargets {
		if _, ok := mf.Targets[name]; ok {
			present = true
		}
	}
	if !present {
		return nil
	}

	resolved, err := makefile.Resolve(commandSections(mf))
	if err != nil {
		return err
	}
	var cmds []string
	for _, name := range makefileTargets {
		cmds = append(cmds, resolved[name]...)
	}

	b.SetBuildCommands(cmds, SourceMakefile)
	if installable(root) {
		b.SetBuildDependencies(installSelf, SourceMakefile)
	} else {
		b.SetBuildDependencies(b.AllDependencies(), SourceMakefile)
	}
	b.SetBuildRoot(root, SourceMakefile)
	return nil
}

// commandSections turns each target body into shell commands: Make
// prefixes stripped and the file's variables expanded for that target.
func commandSections(mf *makefile.File) map[string]makefile.Section {
	sections := mf.Sections()
	for name, sec := range sections {
		cmds := make([]string, 0, len(sec.Lines))
		for _, line := range sec.Lines {
			if cmd := makefile.Command(mf.Expand(makefile.Command(line), name)); cmd != "" {
				cmds = append(cmds, cmd)
			}
		}
		sec.Lines = cmds
		sections[name] = sec
	}
	return sections
}

// Name implements Extractor.
func (DocsMakefileExtractor) Name() string { return string(SourceDocsMakefile) }

// Extract implements Extractor.
func (DocsMakefileExtractor) Extract(b *buildinfo.Builder, root string) error {
	for _, dir := range docsDirs {
		docsDir := filepath.Join(root, dir)
		mf, err := makefile.ParseFile(filepath.Join(docsDir, makefile.FileName))
		if err != nil {
			continue
		}
		if !isSphinxMakefile(mf) {
			continue
		}
		b.SetBuildRoot(docsDir, SourceDocsMakefile)
		b.SetBuildCommands([]string{"make html"}, SourceDocsMakefile)
		b.SetBuildDependencies(b.AllDependencies(), SourceDocsMakefile)
		return nil
	}
	return nil
}

// isSphinxMakefile reports whether mf can build HTML: an explicit html
// target, or the catch-all rule generated around $(SPHINXBUILD).
func isSphinxMakefile(mf *makefile.File) bool {
	if _, ok := mf.Targets["html"]; ok {
		return true
	}
	_, ok := mf.Variables["SPHINXBUILD"]
	return ok
}
