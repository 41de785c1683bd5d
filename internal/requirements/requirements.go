// SPDX-License-Identifier: MPL-2.0

// Package requirements collects every dependency specifier a Python
// repository declares, from requirement-list files (following include
// directives) and from the pyproject.toml project tables.
package requirements

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/internal/repotree"
	"github.com/pelletier/go-toml/v2"
)

// ManifestName is the project manifest read after the requirement files.
const ManifestName = "pyproject.toml"

var (
	// FilePatterns select requirement-list files, relative to the
	// repository root.
	FilePatterns = []string{"**/requirements*.txt", "requirements/*.txt"}

	// ErrIncludeCycle is returned when requirement files include each other.
	ErrIncludeCycle = errors.New("requirements include cycle")

	includeRe = regexp.MustCompile(`^(?:-r|--requirement)(?:\s*=\s*|\s*)(\S+\.txt)$`)
	commentRe = regexp.MustCompile(`(?:^|\s+)#.*$`)

	log = logging.Module("deps")
)

type (
	// IncludeCycleError names the file that was reached a second time.
	IncludeCycleError struct {
		Path  string
		Chain []string
	}

	pyproject struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
	}

	// list is an insertion-ordered set of specifiers.
	list struct {
		items []string
		seen  map[string]bool
	}
)

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("%s includes itself via %s", e.Path, strings.Join(e.Chain, " -> "))
}

func (e *IncludeCycleError) Unwrap() error { return ErrIncludeCycle }

// Collect returns the de-duplicated specifiers declared under root, in first
// encounter order. Unreadable inputs are logged and skipped; collection
// never fails.
func Collect(root string) []string {
	deps := newList()

	files, err := repotree.Open(root).Glob(FilePatterns...)
	if err != nil {
		log.Warn("could not scan repository for requirement files", "root", root, "error", err)
	}
	for _, rel := range files {
		specs, err := ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			log.Warn("could not read requirements file", "file", rel, "error", err)
			continue
		}
		log.Debug("collected requirements file", "file", rel, "count", len(specs))
		deps.add(specs...)
	}

	manifest := filepath.Join(root, ManifestName)
	specs, err := ReadManifest(manifest)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		log.Warn("could not read project manifest", "file", ManifestName, "error", err)
	default:
		deps.add(specs...)
	}

	return deps.items
}

// ReadFile parses one requirement-list file, expanding -r include
// directives relative to the including file. Any unreadable include fails
// the whole file.
func ReadFile(path string) ([]string, error) {
	return readFile(path, nil)
}

func readFile(path string, chain []string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if slices.Contains(chain, abs) {
		return nil, &IncludeCycleError{Path: abs, Chain: append(slices.Clone(chain), abs)}
	}
	chain = append(chain, abs)

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var specs []string
	sc := bufio.NewScanner(f)
	var pending strings.Builder
	for sc.Scan() {
		line := sc.Text()
		if trimmed := strings.TrimRight(line, " \t\r"); strings.HasSuffix(trimmed, `\`) {
			pending.WriteString(strings.TrimSuffix(trimmed, `\`))
			continue
		}
		pending.WriteString(line)
		logical := pending.String()
		pending.Reset()

		line = strings.TrimSpace(commentRe.ReplaceAllString(logical, ""))
		switch {
		case line == "":
			continue
		case includeRe.MatchString(line):
			target := includeRe.FindStringSubmatch(line)[1]
			nested, err := readFile(filepath.Join(filepath.Dir(abs), filepath.FromSlash(target)), chain)
			if err != nil {
				return nil, fmt.Errorf("include %s: %w", target, err)
			}
			specs = append(specs, nested...)
		case isEditable(line):
			specs = append(specs, line)
		case strings.HasPrefix(line, "-"):
			// Index and install options carry no dependency, and -c
			// constraint files only pin versions.
			continue
		default:
			specs = append(specs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rest := strings.TrimSpace(commentRe.ReplaceAllString(pending.String(), "")); rest != "" && !strings.HasPrefix(rest, "-") {
		specs = append(specs, rest)
	}
	return specs, nil
}

// ReadManifest returns [project].dependencies followed by every
// [project.optional-dependencies] group in group-name order.
func ReadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	var specs []string
	for _, dep := range doc.Project.Dependencies {
		if dep = strings.TrimSpace(dep); dep != "" {
			specs = append(specs, dep)
		}
	}
	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for name := range doc.Project.OptionalDependencies {
		groups = append(groups, name)
	}
	slices.Sort(groups)
	for _, name := range groups {
		for _, dep := range doc.Project.OptionalDependencies[name] {
			if dep = strings.TrimSpace(dep); dep != "" {
				specs = append(specs, dep)
			}
		}
	}
	return specs, nil
}

func isEditable(line string) bool {
	return strings.HasPrefix(line, "-e ") || strings.HasPrefix(line, "--editable")
}

func newList() *list {
	return &list{seen: make(map[string]bool)}
}

func (l *list) add(specs ...string) {
	for _, s := range specs {
		if l.seen[s] {
			continue
		}
		l.seen[s] = true
		l.items = append(l.items, s)
	}
}
