// SPDX-License-Identifier: MPL-2.0

package docset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/docset-builder/docset-builder/internal/issue"
	"github.com/docset-builder/docset-builder/internal/testutil"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

func TestLocateBuiltDocs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		files     map[string]string
		buildRoot string
		want      string
	}{
		{
			name:      "build root first",
			files:     map[string]string{"docs/source/_build/html/index.html": "", "docs/_build/html/index.html": ""},
			buildRoot: "docs/source",
			want:      "docs/source/_build/html",
		},
		{
			name:      "doc before docs",
			files:     map[string]string{"doc/_build/html/index.html": "", "docs/_build/html/index.html": ""},
			buildRoot: "elsewhere",
			want:      "doc/_build/html",
		},
		{
			name:  "docs without build root",
			files: map[string]string{"docs/_build/html/index.html": ""},
			want:  "docs/_build/html",
		},
		{
			name:  "repository root",
			files: map[string]string{"_build/html/index.html": "", "zzz/_build/html/index.html": ""},
			want:  "_build/html",
		},
		{
			name:  "walk order",
			files: map[string]string{"b/_build/html/index.html": "", "a/sub/_build/html/index.html": ""},
			want:  "a/sub/_build/html",
		},
		{
			name:  "ignored directories skipped",
			files: map[string]string{".tox/docs/_build/html/index.html": "", "site/_build/html/index.html": ""},
			want:  "site/_build/html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := testutil.WriteTree(t, tt.files)
			info := buildinfo.BuildInfo{PackageName: "pkg"}
			if tt.buildRoot != "" {
				info.BuildRoot = filepath.Join(root, filepath.FromSlash(tt.buildRoot))
			}
			got, err := LocateBuiltDocs(info, root)
			if err != nil {
				t.Fatalf("LocateBuiltDocs() error = %v", err)
			}
			if want := filepath.Join(root, filepath.FromSlash(tt.want)); got != want {
				t.Errorf("LocateBuiltDocs() = %q, want %q", got, want)
			}
		})
	}
}

func TestLocateBuiltDocs_NotFound(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{"docs/conf.py": "", "docs/_build/latex/x.tex": ""})
	_, err := LocateBuiltDocs(buildinfo.BuildInfo{BuildRoot: filepath.Join(root, "docs")}, root)
	if !errors.Is(err, ErrBuiltDocsNotFound) {
		t.Errorf("error = %v, want ErrBuiltDocsNotFound", err)
	}
}

// doc2dashRecorder fakes doc2dash with the test binary.
type doc2dashRecorder struct {
	args    atomic.Pointer[[]string]
	produce bool
}

func (r *doc2dashRecorder) execCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	recorded := slices.Clone(args)
	r.args.Store(&recorded)
	cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...) //nolint:gosec // test helper process
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	if r.produce {
		cmd.Env = append(cmd.Env, "GO_HELPER_PRODUCE=1")
	}
	return cmd
}

func (r *doc2dashRecorder) lastArgs() []string {
	if p := r.args.Load(); p != nil {
		return *p
	}
	return nil
}

// TestHelperProcess stands in for doc2dash: it creates <destination>/<name>.docset.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	var name, dest string
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "--name":
			name = args[i+1]
		case "--destination":
			dest = args[i+1]
		}
	}
	if os.Getenv("GO_HELPER_PRODUCE") == "1" {
		if err := os.MkdirAll(filepath.Join(dest, name+Extension, "Contents"), 0o755); err != nil {
			os.Exit(2)
		}
	}
	os.Exit(0)
}

func lookPathFound(string) (string, error) { return "/usr/bin/doc2dash", nil }

func newTestPackager(t *testing.T, rec *doc2dashRecorder) *Packager {
	t.Helper()
	hc := retryablehttp.NewClient()
	hc.RetryMax = 0
	hc.Logger = nil
	return NewPackager(t.TempDir(), WithExecCommand(rec.execCommand, lookPathFound), WithHTTPClient(hc))
}

func TestPackager_Build(t *testing.T) {
	t.Parallel()

	repo := testutil.WriteTree(t, map[string]string{"docs/_static/logo.png": "png", "docs/_build/html/index.html": ""})
	rec := &doc2dashRecorder{produce: true}
	p := newTestPackager(t, rec)
	out := t.TempDir()
	htmlDir := filepath.Join(repo, "docs", "_build", "html")
	icon := filepath.Join(repo, "docs", "_static", "logo.png")

	docset, err := p.Build(t.Context(), htmlDir, buildinfo.BuildInfo{
		PackageName: "attrs",
		EntryPage:   "index.html",
		UsesIcon:    true,
		IconPath:    icon,
	}, out)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if docset != filepath.Join(out, "attrs.docset") {
		t.Errorf("Build() = %q", docset)
	}
	want := []string{"--name", "attrs", "--destination", out, "--force", "--index-page", "index.html", "--icon", icon, htmlDir}
	if !slices.Equal(rec.lastArgs(), want) {
		t.Errorf("doc2dash args = %v\nwant %v", rec.lastArgs(), want)
	}
}

func TestPackager_IconHandling(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "missing.png") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	t.Cleanup(server.Close)

	local := testutil.WriteTree(t, map[string]string{"logo.svg": "<svg/>"})

	tests := []struct {
		name     string
		info     buildinfo.BuildInfo
		wantIcon bool
	}{
		{name: "icon disabled", info: buildinfo.BuildInfo{UsesIcon: false, IconPath: server.URL + "/a.png"}},
		{name: "remote png", info: buildinfo.BuildInfo{UsesIcon: true, IconPath: server.URL + "/arrow.png"}, wantIcon: true},
		{name: "remote failure", info: buildinfo.BuildInfo{UsesIcon: true, IconPath: server.URL + "/missing.png"}},
		{name: "svg skipped", info: buildinfo.BuildInfo{UsesIcon: true, IconPath: filepath.Join(local, "logo.svg")}},
		{name: "missing local", info: buildinfo.BuildInfo{UsesIcon: true, IconPath: filepath.Join(local, "gone.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &doc2dashRecorder{produce: true}
			p := newTestPackager(t, rec)
			tt.info.PackageName = "pkg"

			if _, err := p.Build(t.Context(), t.TempDir(), tt.info, t.TempDir()); err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			args := rec.lastArgs()
			i := slices.Index(args, "--icon")
			if (i >= 0) != tt.wantIcon {
				t.Fatalf("--icon present = %v, want %v: %v", i >= 0, tt.wantIcon, args)
			}
			if tt.wantIcon {
				data, err := os.ReadFile(args[i+1])
				if err != nil || string(data) != "\x89PNG" {
					t.Errorf("downloaded icon = %q, %v", data, err)
				}
				if filepath.Dir(args[i+1]) != p.iconDir {
					t.Errorf("icon stored outside the icon cache: %s", args[i+1])
				}
			}
		})
	}
}

func TestFetchIcon_Cached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("png"))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	client := retryablehttp.NewClient()
	client.Logger = nil
	for range 2 {
		path, err := fetchIcon(t.Context(), client, server.URL+"/icons/logo", dir, "arrow")
		if err != nil {
			t.Fatalf("fetchIcon() error = %v", err)
		}
		if path != filepath.Join(dir, "arrow.png") {
			t.Errorf("path = %q", path)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestPackager_Errors(t *testing.T) {
	t.Parallel()

	t.Run("doc2dash missing", func(t *testing.T) {
		t.Parallel()
		p := NewPackager(t.TempDir(), WithExecCommand(exec.CommandContext, func(string) (string, error) {
			return "", exec.ErrNotFound
		}))
		_, err := p.Build(t.Context(), t.TempDir(), buildinfo.BuildInfo{PackageName: "x"}, t.TempDir())
		if issue.IssueOf(err) != issue.Doc2dashNotFoundId {
			t.Errorf("IssueOf() = %d, want Doc2dashNotFoundId: %v", issue.IssueOf(err), err)
		}
	})

	t.Run("nothing produced", func(t *testing.T) {
		t.Parallel()
		p := newTestPackager(t, &doc2dashRecorder{})
		_, err := p.Build(t.Context(), t.TempDir(), buildinfo.BuildInfo{PackageName: "x"}, t.TempDir())
		if !errors.Is(err, ErrPackagingFailed) {
			t.Errorf("error = %v, want ErrPackagingFailed", err)
		}
	})
}
