// SPDX-License-Identifier: MPL-2.0

package docset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/docset-builder/docset-builder/internal/issue"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"
)

const (
	// Doc2dashBinary is the converter looked up on PATH.
	Doc2dashBinary = "doc2dash"
	// Extension is the suffix of a docset bundle directory.
	Extension = ".docset"
)

// ErrPackagingFailed is returned when doc2dash fails or produces nothing.
var ErrPackagingFailed = errors.New("docset packaging failed")

type (
	// ExecCommandFunc creates an exec.Cmd. It matches exec.CommandContext.
	ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

	// Packager converts built HTML into a docset with doc2dash.
	Packager struct {
		iconDir     string
		http        *retryablehttp.Client
		execCommand ExecCommandFunc
		lookPath    func(string) (string, error)
		stdout      io.Writer
		stderr      io.Writer
	}

	// PackagerOption configures a Packager.
	PackagerOption func(*Packager)
)

// WithExecCommand replaces the command factory, for tests.
func WithExecCommand(fn ExecCommandFunc, lookPath func(string) (string, error)) PackagerOption {
	return func(p *Packager) {
		p.execCommand = fn
		p.lookPath = lookPath
	}
}

// WithHTTPClient sets the client used for remote icons.
func WithHTTPClient(c *retryablehttp.Client) PackagerOption {
	return func(p *Packager) { p.http = c }
}

// WithPackagerOutput forwards doc2dash output.
func WithPackagerOutput(stdout, stderr io.Writer) PackagerOption {
	return func(p *Packager) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// NewPackager creates a packager caching remote icons under cacheDir/icons.
func NewPackager(cacheDir string, opts ...PackagerOption) *Packager {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = log
	hc.HTTPClient.Timeout = 30 * time.Second

	p := &Packager{
		iconDir:     filepath.Join(cacheDir, IconSubdir),
		http:        hc,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build runs doc2dash on htmlDir and returns the produced <name>.docset
// directory inside outDir. The icon is passed only when info wants one and
// it resolves to a PNG file; remote icons are downloaded first.
func (p *Packager) Build(ctx context.Context, htmlDir string, info buildinfo.BuildInfo, outDir string) (string, error) {
	bin, err := p.lookPath(Doc2dashBinary)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("package docset").
			WithResource(info.PackageName).
			WithSuggestion("Install doc2dash, e.g. pipx install doc2dash").
			WithIssue(issue.Doc2dashNotFoundId).
			Wrap(err).
			BuildError()
	}

	args := []string{"--name", info.PackageName, "--destination", outDir, "--force"}
	if info.EntryPage != "" {
		args = append(args, "--index-page", info.EntryPage)
	}
	if icon := p.resolveIcon(ctx, info); icon != "" {
		args = append(args, "--icon", icon)
	}
	args = append(args, htmlDir)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create docset output directory: %w", err)
	}

	log.Info("packaging docset", "package", info.PackageName, "html", htmlDir)
	cmd := p.execCommand(ctx, bin, args...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: doc2dash for %s: %w", ErrPackagingFailed, info.PackageName, err)
	}

	docset := filepath.Join(outDir, info.PackageName+Extension)
	if !isDir(docset) {
		return "", fmt.Errorf("%w: doc2dash produced no %s in %s", ErrPackagingFailed, filepath.Base(docset), outDir)
	}
	return docset, nil
}

// resolveIcon returns a local PNG for info, or "" to package without one.
// Icon problems never fail the build; they are logged and skipped.
func (p *Packager) resolveIcon(ctx context.Context, info buildinfo.BuildInfo) string {
	if !info.UsesIcon || info.IconPath == "" {
		return ""
	}
	icon := info.IconPath
	if isRemote(icon) {
		local, err := fetchIcon(ctx, p.http, icon, p.iconDir, info.PackageName)
		if err != nil {
			log.Warn("icon download failed, packaging without icon", "package", info.PackageName, "error", err)
			return ""
		}
		icon = local
	}
	if !strings.EqualFold(filepath.Ext(icon), ".png") {
		log.Warn("doc2dash only accepts PNG icons, packaging without icon", "package", info.PackageName, "icon", icon)
		return ""
	}
	if _, err := os.Stat(icon); err != nil {
		log.Warn("icon not readable, packaging without icon", "package", info.PackageName, "icon", icon, "error", err)
		return ""
	}
	return icon
}
