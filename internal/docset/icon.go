// SPDX-License-Identifier: MPL-2.0

package docset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// IconSubdir is the cache subdirectory holding downloaded icons.
const IconSubdir = "icons"

// isRemote reports whether icon is an http(s) URL rather than a local path.
func isRemote(icon string) bool {
	u, err := url.Parse(icon)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// fetchIcon downloads a remote icon to dir/<pkg><ext>, reusing an earlier
// download. The file is written through a temporary name so an interrupted
// download never looks complete.
func fetchIcon(ctx context.Context, client *retryablehttp.Client, iconURL, dir, pkg string) (string, error) {
	u, err := url.Parse(iconURL)
	if err != nil {
		return "", fmt.Errorf("parse icon url: %w", err)
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		ext = ".png"
	}
	dest := filepath.Join(dir, pkg+ext)
	if _, err := os.Stat(dest); err == nil {
		log.Debug("icon cache hit", "package", pkg, "path", dest)
		return dest, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download icon %s: %w", iconURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download icon %s: status %d", iconURL, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create icon directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, pkg+"-*.part")
	if err != nil {
		return "", fmt.Errorf("create icon file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write icon: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("store icon: %w", err)
	}
	log.Info("downloaded icon", "package", pkg, "url", iconURL, "path", dest)
	return dest, nil
}
