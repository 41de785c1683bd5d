// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/pkg/overrides"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/go-version"
)

// CacheSubdir is the directory under the cache root holding metadata files.
const CacheSubdir = "pypi"

// FieldRepositoryURL is the only registry field a build cannot do without.
const FieldRepositoryURL = "repository_url"

// repositoryKeys are the project_urls labels naming the source repository,
// in order of preference.
var repositoryKeys = []string{"Repository", "Source Code", "Source"}

var (
	log = logging.Module("pypi")

	// ErrPackageNotFound is returned when the index has no such project.
	ErrPackageNotFound = errors.New("package not found")
	// ErrLookupFailed is returned for any other unsuccessful response.
	ErrLookupFailed = errors.New("package lookup failed")
)

type (
	// Info is the registry metadata of one package.
	Info struct {
		PackageName   string `json:"package_name"`
		RepositoryURL string `json:"repository_url,omitempty"`
		LatestRelease string `json:"latest_release,omitempty"`
	}

	// LookupError describes a failed metadata request.
	LookupError struct {
		Package    string
		URL        string
		StatusCode int
	}

	// Client fetches and caches package metadata. It is safe for
	// concurrent use.
	Client struct {
		baseURL   string
		http      *retryablehttp.Client
		overrides *overrides.Table
		cacheDir  string
		useCache  bool
	}

	// Option configures a Client.
	Option func(*Client)

	projectDocument struct {
		Info struct {
			ProjectURLs map[string]string `json:"project_urls"`
		} `json:"info"`
		Releases map[string]json.RawMessage `json:"releases"`
	}
)

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("unable to get information for %q from %s: status %d", e.Package, e.URL, e.StatusCode)
}

// Unwrap returns ErrPackageNotFound for 404 responses and ErrLookupFailed otherwise.
func (e *LookupError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrPackageNotFound
	}
	return ErrLookupFailed
}

// MissingFields lists the required fields that are empty.
func (i Info) MissingFields() []string {
	if i.RepositoryURL == "" {
		return []string{FieldRepositoryURL}
	}
	return nil
}

// IsSufficient reports whether the repository can be located.
func (i Info) IsSufficient() bool {
	return len(i.MissingFields()) == 0
}

// WithCache enables reading and writing cached metadata under dir/pypi.
// useCache false still writes the cache but never reads it.
func WithCache(dir string, useCache bool) Option {
	return func(c *Client) {
		c.cacheDir = dir
		c.useCache = useCache
	}
}

// WithOverrides sets the table whose registry values pre-empt lookups.
func WithOverrides(t *overrides.Table) Option {
	return func(c *Client) { c.overrides = t }
}

// WithRetry sets the retry budget for transient HTTP failures.
func WithRetry(maxRetries int, minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = maxRetries
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// NewClient creates a client for the index at baseURL (e.g. https://pypi.org).
func NewClient(baseURL string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = log
	hc.HTTPClient.Timeout = 30 * time.Second

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the metadata for name. Override values win over both the
// cache and the index; when the overrides provide every field no request is
// made.
func (c *Client) Lookup(ctx context.Context, name string) (Info, error) {
	entry := c.overrides.Lookup(name)

	if c.useCache {
		if info, ok := c.loadCached(name); ok {
			log.Debug("pypi cache hit", "package", name)
			return applyOverrides(info, entry), nil
		}
		log.Debug("pypi cache miss", "package", name)
	}

	info := applyOverrides(Info{PackageName: name}, entry)
	if info.RepositoryURL == "" || info.LatestRelease == "" {
		doc, err := c.fetch(ctx, name)
		if err != nil {
			return Info{}, err
		}
		extract(&info, doc)
	}

	c.store(info)
	log.Info("package metadata assembled", "package", name,
		"repository_url", info.RepositoryURL, "latest_release", info.LatestRelease)
	return info, nil
}

func (c *Client) fetch(ctx context.Context, name string) (*projectDocument, error) {
	endpoint := c.baseURL + "/pypi/" + url.PathEscape(name) + "/json"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LookupError{Package: name, URL: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var doc projectDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", endpoint, err)
	}
	return &doc, nil
}

// extract fills the fields of info that are still empty.
func extract(info *Info, doc *projectDocument) {
	if info.RepositoryURL == "" {
		for _, key := range repositoryKeys {
			if u := doc.Info.ProjectURLs[key]; u != "" {
				info.RepositoryURL = u
				log.Debug("added repository url", "key", key, "repository_url", u)
				break
			}
		}
	}

	if info.LatestRelease == "" {
		if latest := LatestRelease(doc.Releases); latest != "" {
			info.LatestRelease = latest
			log.Debug("added latest release", "latest_release", latest)
		}
	}
}

// LatestRelease returns the highest version among the keys of releases.
// Keys that do not parse as versions are ignored.
func LatestRelease[V any](releases map[string]V) string {
	var (
		best    *version.Version
		bestRaw string
	)
	for raw := range releases {
		v, err := version.NewVersion(raw)
		if err != nil {
			log.Debug("skipping unparseable release", "release", raw)
			continue
		}
		// Ties between equivalent spellings (1.0 / 1.0.0) resolve lexically.
		if best == nil || v.GreaterThan(best) || (v.Equal(best) && raw > bestRaw) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw
}

func applyOverrides(info Info, entry overrides.Entry) Info {
	if entry.RepositoryURL != "" {
		info.RepositoryURL = entry.RepositoryURL
	}
	if entry.LatestRelease != "" {
		info.LatestRelease = entry.LatestRelease
	}
	return info
}

func (c *Client) cachePath(name string) string {
	return filepath.Join(c.cacheDir, CacheSubdir, name+".json")
}

func (c *Client) loadCached(name string) (Info, bool) {
	if c.cacheDir == "" {
		return Info{}, false
	}
	data, err := os.ReadFile(c.cachePath(name))
	if err != nil {
		return Info{}, false
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		log.Warn("ignoring corrupt cache entry", "package", name, "error", err)
		return Info{}, false
	}
	return info, true
}

func (c *Client) store(info Info) {
	if c.cacheDir == "" {
		return
	}
	path := c.cachePath(info.PackageName)
	data, err := json.MarshalIndent(info, "", "  ")
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0o755)
	}
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		log.Warn("could not cache package metadata", "package", info.PackageName, "error", err)
		return
	}
	log.Debug("cached package metadata", "package", info.PackageName, "path", path)
}
