// Package gitops checks out the scan targets with shallow git clones.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvidia/nim-usage-scanner/internal/config"
)

// CloneResult pairs a repo spec with its checkout path, or the failure
// that prevented it.
type CloneResult struct {
	Repo config.RepoSpec
	Path string
	Err  error
}

// CloneAll clones every repository under workDir with a bounded worker
// pool. A repository that fails to clone is reported in its result and
// does not stop the others.
func CloneAll(ctx context.Context, repos []config.RepoSpec, workDir, token string, workers int, log *zap.Logger) []CloneResult {
	if workers <= 0 {
		workers = 4
	}

	results := make([]CloneResult, len(repos))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, repo := range repos {
		g.Go(func() error {
			path := filepath.Join(workDir, repo.Name)
			err := cloneOne(ctx, repo, path, token)
			if err != nil {
				log.Warn("clone failed", zap.String("repository", repo.Name), zap.Error(err))
			} else {
				log.Debug("cloned", zap.String("repository", repo.Name), zap.String("branch", repo.Branch))
			}
			results[i] = CloneResult{Repo: repo, Path: path, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func cloneOne(ctx context.Context, repo config.RepoSpec, path, token string) error {
	// Reuse an existing checkout, e.g. a prior run with --keep-repos.
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return nil
	}
	args := []string{
		"clone",
		"--depth", strconv.Itoa(repo.Depth),
		"--branch", repo.Branch,
		"--single-branch",
		authURL(repo.URL, token),
		path,
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if token != "" {
			msg = strings.ReplaceAll(msg, token, "***")
		}
		if msg == "" {
			return fmt.Errorf("git clone %s: %w", repo.Name, err)
		}
		return fmt.Errorf("git clone %s: %s", repo.Name, msg)
	}
	return nil
}

// authURL injects a token into https clone URLs so private repositories
// work without credential helpers. Other schemes pass through unchanged.
func authURL(url, token string) string {
	if token == "" || !strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://x-access-token:" + token + "@" + strings.TrimPrefix(url, "https://")
}
