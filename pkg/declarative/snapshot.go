package declarative

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gooddata/gdc/pkg/catalog"
)

const (
	defaultAuthorName  = "gdc"
	defaultAuthorEmail = "gdc@localhost"
)

// commitSnapshot stages every change under <root>/analytics and commits it.
// It returns the new commit hash, or "" when root is not in a git work tree
// or nothing changed.
func commitSnapshot(logger *slog.Logger, root, message string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		logger.Warn("not a git repository, skipping commit", "root", root)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("opening git repository: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening git worktree: %w", err)
	}

	rel, err := analyticsPathInWorktree(w.Filesystem.Root(), root)
	if err != nil {
		return "", err
	}

	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("reading git status: %w", err)
	}

	staged := 0
	for path, st := range status {
		if path != rel && !strings.HasPrefix(path, rel+"/") {
			continue
		}
		switch st.Worktree {
		case gogit.Unmodified:
			continue
		case gogit.Deleted:
			_, err = w.Remove(path)
		default:
			_, err = w.Add(path)
		}
		if err != nil {
			return "", fmt.Errorf("staging %s: %w", path, err)
		}
		staged++
	}
	if staged == 0 {
		logger.Info("layout unchanged, nothing to commit")
		return "", nil
	}

	hash, err := w.Commit(message, &gogit.CommitOptions{Author: commitAuthor(repo)})
	if err != nil {
		return "", fmt.Errorf("committing layout: %w", err)
	}
	logger.Info("layout committed", "commit", hash.String(), "files", staged)
	return hash.String(), nil
}

// analyticsPathInWorktree returns <root>/analytics relative to the worktree
// root, with forward slashes as git status reports them.
func analyticsPathInWorktree(worktreeRoot, root string) (string, error) {
	// Resolve symlinks on both sides, e.g. /tmp on macOS.
	wt, err := filepath.EvalSymlinks(worktreeRoot)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", worktreeRoot, err)
	}
	r, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	rel, err := filepath.Rel(wt, filepath.Join(r, catalog.LayoutAnalyticsDir))
	if err != nil {
		return "", fmt.Errorf("locating analytics in worktree: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// commitAuthor uses the user from git config, falling back to a fixed
// identity so commits work on CI runners without one.
func commitAuthor(repo *gogit.Repository) *object.Signature {
	sig := &object.Signature{Name: defaultAuthorName, Email: defaultAuthorEmail, When: time.Now()}
	if cfg, err := repo.ConfigScoped(config.GlobalScope); err == nil {
		if cfg.User.Name != "" {
			sig.Name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	if name := os.Getenv("GIT_AUTHOR_NAME"); name != "" {
		sig.Name = name
	}
	if email := os.Getenv("GIT_AUTHOR_EMAIL"); email != "" {
		sig.Email = email
	}
	return sig
}
