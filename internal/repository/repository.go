// SPDX-License-Identifier: MPL-2.0

// Package repository keeps local clones of package source repositories.
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docset-builder/docset-builder/internal/logging"
	"github.com/docset-builder/docset-builder/internal/registry"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// CacheSubdir is the directory under the cache root holding clones.
const CacheSubdir = "repositories"

var (
	log = logging.Module("repos")

	// ErrNoRepositoryURL is returned when the registry info has no URL to clone.
	ErrNoRepositoryURL = errors.New("no repository url")
)

type (
	// Checkout is the state of a synced clone.
	Checkout struct {
		// Dir is the working tree.
		Dir string
		// Tag is the release tag checked out, or "" when the default
		// branch is checked out.
		Tag string
		// Commit is the checked out commit hash.
		Commit string
	}

	// Syncer clones and updates repositories under a cache directory.
	Syncer struct {
		dir string
	}
)

// NewSyncer creates a Syncer storing clones in cacheDir/repositories.
// Credentials are picked up from ~/.ssh keys or GITHUB_TOKEN, GITLAB_TOKEN
// and GIT_TOKEN, matching the remote's URL scheme.
func NewSyncer(cacheDir string) *Syncer {
	return &Syncer{dir: filepath.Join(cacheDir, CacheSubdir)}
}

// Dir returns the clone directory of a package.
func (s *Syncer) Dir(name string) string {
	return filepath.Join(s.dir, name)
}

// Sync clones the repository of a package if it is absent and fetches
// origin (tags included) otherwise. The tag of the latest release, spelled
// "<release>" or "v<release>", is checked out when present; without one the
// default branch is reset to its upstream state.
func (s *Syncer) Sync(ctx context.Context, name string, info registry.Info) (Checkout, error) {
	if info.RepositoryURL == "" {
		return Checkout{}, fmt.Errorf("%s: %w", name, ErrNoRepositoryURL)
	}
	dir := s.Dir(name)
	logger := log.With("package", name, "dir", dir)
	auth := authFor(info.RepositoryURL)

	repo, err := git.PlainOpen(dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		logger.Info("clone", "url", info.RepositoryURL)
		repo, err = clone(ctx, info.RepositoryURL, dir, auth)
		if err != nil {
			return Checkout{}, fmt.Errorf("failed to clone repository: %w", err)
		}
	case err != nil:
		return Checkout{}, fmt.Errorf("failed to open repository: %w", err)
	default:
		logger.Info("update")
		// A stale clone is still usable offline.
		if err := fetch(ctx, repo, auth); err != nil {
			logger.Warn("fetch failed, using local state", "error", err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Checkout{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	if info.LatestRelease != "" {
		tag, hash, err := findTag(repo, info.LatestRelease)
		if err == nil {
			if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
				return Checkout{}, fmt.Errorf("failed to checkout %s: %w", tag, err)
			}
			logger.Info("checked out release", "tag", tag, "commit", hash.String())
			return Checkout{Dir: dir, Tag: tag, Commit: hash.String()}, nil
		}
		logger.Info("no tag for latest release, using default branch", "release", info.LatestRelease)
	}

	hash, err := checkoutDefaultBranch(repo, wt)
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{Dir: dir, Commit: hash.String()}, nil
}

func clone(ctx context.Context, url, dest string, auth transport.AuthMethod) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  url,
		Auth: auth,
		Tags: git.AllTags,
	})
	if err != nil {
		// Leave no half-written clone behind to be mistaken for a good one.
		_ = os.RemoveAll(dest)
		return nil, err
	}
	return repo, nil
}

func fetch(ctx context.Context, repo *git.Repository, auth transport.AuthMethod) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       auth,
		Tags:       git.AllTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// findTag resolves release to a commit, trying the name as-is and with or
// without a "v" prefix. Annotated tags are dereferenced.
func findTag(repo *git.Repository, release string) (string, plumbing.Hash, error) {
	names := []string{release}
	if noV, found := strings.CutPrefix(release, "v"); found {
		names = append(names, noV)
	} else {
		names = append(names, "v"+release)
	}

	for _, name := range names {
		ref, err := repo.Reference(plumbing.NewTagReferenceName(name), true)
		if err != nil {
			continue
		}
		if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
			return name, tagObj.Target, nil
		}
		return name, ref.Hash(), nil
	}
	return "", plumbing.ZeroHash, fmt.Errorf("tag %q not found", release)
}

// checkoutDefaultBranch checks out the local branch created by the clone
// and hard-resets it to the fetched remote head.
func checkoutDefaultBranch(repo *git.Repository, wt *git.Worktree) (plumbing.Hash, error) {
	branch, err := defaultBranch(repo)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch, Force: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to checkout %s: %w", branch.Short(), err)
	}

	remote, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch.Short()), true)
	if err != nil {
		head, herr := repo.Head()
		if herr != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to resolve HEAD: %w", herr)
		}
		return head.Hash(), nil
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remote.Hash(), Mode: git.HardReset}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to reset %s: %w", branch.Short(), err)
	}
	return remote.Hash(), nil
}

// defaultBranch returns HEAD's branch, or the first local branch when HEAD
// is detached.
func defaultBranch(repo *git.Repository) (plumbing.ReferenceName, error) {
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		return head.Name(), nil
	}
	iter, err := repo.Branches()
	if err != nil {
		return "", fmt.Errorf("failed to list branches: %w", err)
	}
	defer iter.Close()
	ref, err := iter.Next()
	if err != nil {
		return "", fmt.Errorf("no local branch to return to: %w", err)
	}
	return ref.Name(), nil
}

// authFor picks credentials matching the URL scheme. Public HTTPS remotes
// need none.
func authFor(url string) transport.AuthMethod {
	if strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://") {
		return sshAuth()
	}
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		return httpAuth()
	}
	return nil
}

func sshAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, key := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", key)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func httpAuth() transport.AuthMethod {
	for _, cred := range []struct{ env, user string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	} {
		if token := os.Getenv(cred.env); token != "" {
			return &http.BasicAuth{Username: cred.user, Password: token}
		}
	}
	return nil
}
