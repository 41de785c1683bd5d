// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docset-builder/docset-builder/pkg/overrides"
)

const arrowDocument = `{
  "info": {
    "name": "arrow",
    "project_urls": {
      "Documentation": "https://arrow.readthedocs.io",
      "Source": "https://github.com/arrow-py/arrow-mirror",
      "Source Code": "https://github.com/arrow-py/arrow"
    }
  },
  "releases": {"0.17.0": [], "1.2.3": [], "1.3.0rc1": [], "1.10.0": [], "not-a-version!": []}
}`

// newIndex serves documents keyed by package name and counts requests.
func newIndex(t *testing.T, docs map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		doc, ok := docs[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_Lookup(t *testing.T) {
	t.Parallel()

	srv, _ := newIndex(t, map[string]string{"arrow": arrowDocument})
	c := NewClient(srv.URL)

	info, err := c.Lookup(context.Background(), "arrow")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	want := Info{
		PackageName:   "arrow",
		RepositoryURL: "https://github.com/arrow-py/arrow",
		LatestRelease: "1.10.0",
	}
	if info != want {
		t.Errorf("Lookup() = %+v, want %+v", info, want)
	}
	if !info.IsSufficient() {
		t.Error("info with a repository URL should be sufficient")
	}
}

func TestExtract_RepositoryKeyPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		urls map[string]string
		want string
	}{
		{"repository first", map[string]string{"Source": "s", "Repository": "r", "Source Code": "sc"}, "r"},
		{"source code second", map[string]string{"Source": "s", "Source Code": "sc"}, "sc"},
		{"source last", map[string]string{"Source": "s", "Homepage": "h"}, "s"},
		{"none", map[string]string{"Homepage": "h"}, ""},
		{"no project urls", nil, ""},
		{"keys are case sensitive", map[string]string{"repository": "r"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var doc projectDocument
			doc.Info.ProjectURLs = tt.urls
			info := Info{PackageName: "pkg"}
			extract(&info, &doc)
			if info.RepositoryURL != tt.want {
				t.Errorf("RepositoryURL = %q, want %q", info.RepositoryURL, tt.want)
			}
		})
	}
}

func TestLatestRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		releases []string
		want     string
	}{
		{"numeric not lexical", []string{"0.9", "0.10", "0.2"}, "0.10"},
		{"release beats its pre-release", []string{"2.0rc1", "2.0", "1.9"}, "2.0"},
		{"pre-release beats older release", []string{"2.0rc1", "1.9"}, "2.0rc1"},
		{"unparseable skipped", []string{"garbage!", "1.0"}, "1.0"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			releases := make(map[string]struct{}, len(tt.releases))
			for _, r := range tt.releases {
				releases[r] = struct{}{}
			}
			if got := LatestRelease(releases); got != tt.want {
				t.Errorf("LatestRelease(%v) = %q, want %q", tt.releases, got, tt.want)
			}
		})
	}
}

func TestClient_OverridesPreemptIndex(t *testing.T) {
	t.Parallel()

	srv, hits := newIndex(t, map[string]string{"arrow": arrowDocument})
	table := overrides.New(map[string]overrides.Entry{
		"arrow":  {RepositoryURL: "https://example.com/arrow.git"},
		"pinned": {RepositoryURL: "https://example.com/pinned.git", LatestRelease: "3.1"},
	})
	c := NewClient(srv.URL, WithOverrides(table))

	info, err := c.Lookup(context.Background(), "arrow")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if info.RepositoryURL != "https://example.com/arrow.git" || info.LatestRelease != "1.10.0" {
		t.Errorf("Lookup(arrow) = %+v", info)
	}

	before := hits.Load()
	info, err = c.Lookup(context.Background(), "pinned")
	if err != nil {
		t.Fatalf("Lookup(pinned) error: %v", err)
	}
	if hits.Load() != before {
		t.Error("fully overridden package should not hit the index")
	}
	if info.LatestRelease != "3.1" {
		t.Errorf("Lookup(pinned) = %+v", info)
	}
}

func TestClient_Cache(t *testing.T) {
	t.Parallel()

	srv, hits := newIndex(t, map[string]string{"arrow": arrowDocument})
	dir := t.TempDir()

	c := NewClient(srv.URL, WithCache(dir, true))
	if _, err := c.Lookup(context.Background(), "arrow"); err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "pypi", "arrow.json")); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	info, err := c.Lookup(context.Background(), "arrow")
	if err != nil {
		t.Fatalf("cached Lookup() error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("index hit %d times, want 1", hits.Load())
	}
	if info.LatestRelease != "1.10.0" {
		t.Errorf("cached info = %+v", info)
	}

	// Overrides still apply on top of cached metadata.
	table := overrides.New(map[string]overrides.Entry{"arrow": {LatestRelease: "0.17.0"}})
	info, err = NewClient(srv.URL, WithCache(dir, true), WithOverrides(table)).Lookup(context.Background(), "arrow")
	if err != nil || info.LatestRelease != "0.17.0" {
		t.Errorf("override over cache = %+v, %v", info, err)
	}

	// use_cache false goes back to the index.
	if _, err := NewClient(srv.URL, WithCache(dir, false)).Lookup(context.Background(), "arrow"); err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("index hit %d times, want 2", hits.Load())
	}
}

func TestClient_CorruptCacheIsRefetched(t *testing.T) {
	t.Parallel()

	srv, hits := newIndex(t, map[string]string{"arrow": arrowDocument})
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pypi"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pypi", "arrow.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := NewClient(srv.URL, WithCache(dir, true)).Lookup(context.Background(), "arrow")
	if err != nil || info.RepositoryURL == "" || hits.Load() != 1 {
		t.Errorf("Lookup() = %+v, %v (hits %d)", info, err, hits.Load())
	}
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newIndex(t, nil)
	_, err := NewClient(srv.URL).Lookup(context.Background(), "nope")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrPackageNotFound", err)
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.StatusCode != http.StatusNotFound {
		t.Errorf("error should be a 404 *LookupError, got %v", err)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(arrowDocument))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, WithRetry(3, time.Millisecond, 5*time.Millisecond))
	info, err := c.Lookup(context.Background(), "arrow")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if calls.Load() != 3 || info.LatestRelease != "1.10.0" {
		t.Errorf("calls = %d, info = %+v", calls.Load(), info)
	}
}

func TestClient_MissingRepository(t *testing.T) {
	t.Parallel()

	srv, _ := newIndex(t, map[string]string{"bare": `{"info": {"project_urls": null}, "releases": {"1.0": []}}`})
	info, err := NewClient(srv.URL).Lookup(context.Background(), "bare")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if info.IsSufficient() {
		t.Error("info without repository should not be sufficient")
	}
	if got := info.MissingFields(); len(got) != 1 || got[0] != FieldRepositoryURL {
		t.Errorf("MissingFields() = %v", got)
	}
}
