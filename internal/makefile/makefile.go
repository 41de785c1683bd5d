// SPDX-License-Identifier: MPL-2.0

// Package makefile reads the subset of Makefile syntax needed to recover
// documentation build recipes: targets with prerequisites and recipe lines,
// and simple variable assignments. It does not evaluate conditionals,
// includes, functions or pattern rules.
package makefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const (
	// FileName is the conventional task-runner file name.
	FileName = "Makefile"

	escapedDollar = "\x00"
)

var (
	assignmentRe = regexp.MustCompile(`^(?:export\s+|override\s+)?([A-Za-z_][\w.]*)\s*(\?=|::=|:=|\+=|=)\s*(.*)$`)
	headerRe     = regexp.MustCompile(`^([.\w][.\w -]*?)\s*::?(.*)$`)
	variableRe   = regexp.MustCompile(`\$[({]([A-Za-z_][\w.]*)[)}]`)
)

type (
	// Target is one named section of a Makefile.
	Target struct {
		Name          string
		Prerequisites []string
		Lines         []string
	}

	// File is a parsed Makefile. Order lists target names as first defined.
	File struct {
		Targets   map[string]*Target
		Order     []string
		Variables map[string]string
	}
)

// ParseFile reads and parses the Makefile at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mf, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mf, nil
}

// Parse reads Makefile content. Indented lines following a target header
// form that target's body; any other unindented line ends it.
func Parse(r io.Reader) (*File, error) {
	mf := &File{
		Targets:   make(map[string]*Target),
		Variables: make(map[string]string),
	}

	lines, err := logicalLines(r)
	if err != nil {
		return nil, err
	}

	var current []*Target
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if line[0] == '\t' || line[0] == ' ' {
			body := strings.TrimSpace(line)
			if len(current) == 0 || strings.HasPrefix(body, "#") {
				continue
			}
			for _, t := range current {
				t.Lines = append(t.Lines, body)
			}
			continue
		}

		current = nil
		if strings.HasPrefix(line, "#") {
			continue
		}
		if m := assignmentRe.FindStringSubmatch(line); m != nil {
			mf.assign(m[1], m[2], m[3])
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			current = mf.define(m[1], m[2])
		}
	}

	return mf, nil
}

// Sections returns every target as a resolver input.
func (mf *File) Sections() map[string]Section {
	out := make(map[string]Section, len(mf.Targets))
	for name, t := range mf.Targets {
		out[name] = Section{Prerequisites: t.Prerequisites, Lines: t.Lines}
	}
	return out
}

// Expand substitutes $(VAR) and ${VAR} references with the file's
// variables, $@ with target and $$ with a literal $. Unknown variables are
// left untouched so the shell sees them.
func (mf *File) Expand(s, target string) string {
	// $$ is hidden first so that $$@ and $$(X) stay literal for the shell.
	s = strings.ReplaceAll(s, "$$", escapedDollar)
	// Nested references are expanded a bounded number of times.
	for range 8 {
		next := variableRe.ReplaceAllStringFunc(s, func(ref string) string {
			name := variableRe.FindStringSubmatch(ref)[1]
			if v, ok := mf.Variables[name]; ok {
				return strings.ReplaceAll(v, "$$", escapedDollar)
			}
			return ref
		})
		if next == s {
			break
		}
		s = next
	}
	s = strings.ReplaceAll(s, "$@", target)
	return strings.ReplaceAll(s, escapedDollar, "$")
}

// Command turns a recipe line into a shell command by stripping the Make
// prefixes @ (silent), - (ignore errors) and + (always run).
func Command(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "@-+"))
}

func (mf *File) assign(name, op, value string) {
	value = strings.TrimSpace(value)
	switch op {
	case "?=":
		if _, ok := mf.Variables[name]; !ok {
			mf.Variables[name] = value
		}
	case "+=":
		if prev, ok := mf.Variables[name]; ok && prev != "" {
			mf.Variables[name] = prev + " " + value
			return
		}
		mf.Variables[name] = value
	default:
		mf.Variables[name] = value
	}
}

// define registers every name of a header line. A later definition of the
// same name replaces the earlier one.
func (mf *File) define(names, rest string) []*Target {
	prereqs, recipe, hasRecipe := strings.Cut(rest, ";")
	deps := strings.Fields(prereqs)

	var defined []*Target
	for _, name := range strings.Fields(names) {
		t := &Target{Name: name, Prerequisites: append([]string(nil), deps...)}
		if hasRecipe {
			if cmd := strings.TrimSpace(recipe); cmd != "" {
				t.Lines = append(t.Lines, cmd)
			}
		}
		if _, seen := mf.Targets[name]; !seen {
			mf.Order = append(mf.Order, name)
		}
		mf.Targets[name] = t
		defined = append(defined, t)
	}
	return defined
}

// logicalLines joins backslash-continued lines.
func logicalLines(r io.Reader) ([]string, error) {
	var (
		out     []string
		pending strings.Builder
		joining bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if joining {
			pending.WriteByte(' ')
			line = strings.TrimSpace(line)
		}
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimRight(strings.TrimSuffix(line, `\`), " \t"))
			joining = true
			continue
		}
		pending.WriteString(line)
		out = append(out, pending.String())
		pending.Reset()
		joining = false
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if joining {
		out = append(out, pending.String())
	}
	return out, nil
}
