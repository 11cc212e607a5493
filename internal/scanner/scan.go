package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

// Repo is one checked-out repository to scan.
type Repo struct {
	Name string
	Root string
}

// Result is a batch of raw matches, in scan order.
type Result struct {
	Local  []model.LocalMatch
	Hosted []model.HostedMatch
}

func (r *Result) merge(other Result) {
	r.Local = append(r.Local, other.Local...)
	r.Hosted = append(r.Hosted, other.Hosted...)
}

// ScanRepos scans every repository with a bounded worker pool per
// repository and, inside each, a bounded pool per file. Workers share no
// mutable state; each produces an independent batch that is merged after
// the join point in repository-then-file-then-line order, so the merged
// stream is deterministic for a fixed input set.
func ScanRepos(ctx context.Context, repos []Repo, ext *Extractor, workers int, log *zap.Logger) (Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	perRepo := make([]Result, len(repos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, repo := range repos {
		g.Go(func() error {
			res, err := scanRepo(ctx, repo, ext, workers, log)
			if err != nil {
				return err
			}
			perRepo[i] = res
			log.Info("scanned repository",
				zap.String("repository", repo.Name),
				zap.Int("local", len(res.Local)),
				zap.Int("hosted", len(res.Hosted)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var all Result
	for _, res := range perRepo {
		all.merge(res)
	}
	return all, nil
}

func scanRepo(ctx context.Context, repo Repo, ext *Extractor, workers int, log *zap.Logger) (Result, error) {
	files, err := listFiles(repo.Root)
	if err != nil {
		return Result{}, err
	}
	log.Debug("walk complete", zap.String("repository", repo.Name), zap.Int("files", len(files)))

	perFile := make([]Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := scanFile(filepath.Join(repo.Root, rel), rel, repo.Name, ext)
			if err != nil {
				// Unreadable files are skipped, not fatal to the repo.
				log.Warn("skipping unreadable file",
					zap.String("repository", repo.Name), zap.String("file", rel), zap.Error(err))
				return nil
			}
			perFile[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, fr := range perFile {
		res.merge(fr)
	}
	return res, nil
}

// listFiles walks the repository and returns eligible repo-relative paths.
// WalkDir visits entries in lexical order, which keeps the file order
// stable across runs.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skippable(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Eligible(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// scanFile runs the extractor over every line of one file.
func scanFile(absPath, relPath, repo string, ext *Extractor) (Result, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Result{}, err
	}

	ctype := DetectContentType(relPath)
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var res Result
	for i := range lines {
		if m := ext.ExtractLocal(lines, i, ctype, repo, relPath); m != nil {
			res.Local = append(res.Local, *m)
		}
		if m := ext.ExtractHosted(lines, i, ctype, repo, relPath); m != nil {
			res.Hosted = append(res.Hosted, *m)
		}
	}
	return res, nil
}
