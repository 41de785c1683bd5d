// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RepositoryURLMissingId Id = iota + 1
	RegistryLookupFailedId
	InsufficientBuildInfoId
	MakefileCycleId
	BuiltDocsNotFoundId
	DocsBuildFailedId
	Doc2dashNotFoundId
	ContainerEngineNotFoundId
	ConfigLoadFailedId
	LibraryDirNotWritableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation about the issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the issue as styled terminal output. stylePath is a
// glamour style name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	repositoryURLMissingIssue = &Issue{
		id: RepositoryURLMissingId,
		mdMsg: `
# No source repository found!

The package index does not list a source repository for this package, so
there is nothing to clone and build documentation from.

## Where we looked
The ` + "`project_urls`" + ` of the package metadata, under the keys
**Repository**, **Source Code** and **Source**, in that order.

## Things you can try
- Check the package name for typos
- Add the repository to your overrides file:
~~~cue
packages: {
  mypackage: {
    repository_url: "https://github.com/owner/mypackage"
  }
}
~~~`,
		extLinks: []HttpLink{"https://packaging.python.org/en/latest/specifications/well-known-project-urls/"},
	}

	registryLookupFailedIssue = &Issue{
		id: RegistryLookupFailedId,
		mdMsg: `
# Could not fetch package metadata!

The package index did not return metadata for this package.

## Things you can try
- Check that the package exists on the index
- Check your network connection and the ` + "`registry.url`" + ` setting
- Retry without the local cache:
~~~
$ docset-builder install --no-cache mypackage
~~~`,
	}

	insufficientBuildInfoIssue = &Issue{
		id: InsufficientBuildInfoId,
		mdMsg: `
# Could not work out how to build the documentation!

Some build information could not be inferred from the repository (see the
missing fields above).

## What is searched
1. Your overrides file
2. A ` + "`docs`" + ` environment in ` + "`tox.ini`" + `
3. The ` + "`init`" + ` and ` + "`docs`" + ` targets of the root ` + "`Makefile`" + `
4. A Sphinx ` + "`Makefile`" + ` in ` + "`docs/`" + ` or ` + "`doc/`" + `

## Things you can try
- Inspect what was found:
~~~
$ docset-builder inspect mypackage /path/to/checkout
~~~
- Provide the missing fields in your overrides file:
~~~cue
packages: {
  mypackage: {
    build_root: "docs"
    build_dependencies: ["sphinx", "."]
    build_commands: ["sphinx-build -b html . _build/html"]
    entry_page: "index.html"
    uses_icon: false
  }
}
~~~`,
	}

	makefileCycleIssue = &Issue{
		id: MakefileCycleId,
		mdMsg: `
# The repository Makefile has a dependency cycle!

Two or more targets list each other as prerequisites, so their recipes
cannot be ordered.

## Things you can try
- Provide ` + "`build_commands`" + ` for the package in your overrides file
- Report the cycle to the package maintainers`,
	}

	builtDocsNotFoundIssue = &Issue{
		id: BuiltDocsNotFoundId,
		mdMsg: `
# Built documentation not found!

The build finished but no ` + "`_build/html`" + ` directory was found under the
build root, ` + "`doc/`" + `, ` + "`docs/`" + ` or anywhere else in the repository.

## Things you can try
- Run the build with ` + "`--verbose`" + ` and check where the output went
- Set ` + "`build_root`" + ` in your overrides file to the directory that
  contains ` + "`_build/html`" + ` after the build`,
	}

	docsBuildFailedIssue = &Issue{
		id: DocsBuildFailedId,
		mdMsg: `
# Documentation build failed!

One of the dependency installs or build commands exited with an error.

## Things you can try
- Re-run with ` + "`--verbose`" + ` to see the full command output
- Remove the package's virtual environment from the cache directory and retry
- Use the container runtime for an isolated Python:
~~~cue
runtime: "container"
~~~`,
	}

	doc2dashNotFoundIssue = &Issue{
		id: Doc2dashNotFoundId,
		mdMsg: `
# doc2dash not found!

Docsets are produced with ` + "`doc2dash`" + `, which is not on your PATH.

## Things you can try
~~~
$ pipx install doc2dash
~~~`,
		extLinks: []HttpLink{"https://doc2dash.readthedocs.io/"},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

The container runtime needs Podman or Docker.

## Things you can try
- Install Podman: https://podman.io/getting-started/installation
- Install Docker: https://docs.docker.com/get-docker/
- Or build in a local virtual environment instead:
~~~cue
runtime: "virtual"
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try
- Show the effective configuration:
~~~
$ docset-builder config show
~~~
- Write a fresh default file:
~~~
$ docset-builder config init
~~~`,
	}

	libraryDirNotWritableIssue = &Issue{
		id: LibraryDirNotWritableId,
		mdMsg: `
# Cannot install into the docset library!

The docset library directory could not be written.

## Things you can try
- Check that ` + "`library_dir`" + ` points at your Zeal or Dash docsets directory
- Check the directory permissions
- Build without installing:
~~~
$ docset-builder install --build-only mypackage
~~~`,
	}

	issues = map[Id]*Issue{
		repositoryURLMissingIssue.Id():    repositoryURLMissingIssue,
		registryLookupFailedIssue.Id():    registryLookupFailedIssue,
		insufficientBuildInfoIssue.Id():   insufficientBuildInfoIssue,
		makefileCycleIssue.Id():           makefileCycleIssue,
		builtDocsNotFoundIssue.Id():       builtDocsNotFoundIssue,
		docsBuildFailedIssue.Id():         docsBuildFailedIssue,
		doc2dashNotFoundIssue.Id():        doc2dashNotFoundIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		libraryDirNotWritableIssue.Id():   libraryDirNotWritableIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
