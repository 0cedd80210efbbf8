// Package gitops inspects and switches branches of the local project checkout.
package gitops

import (
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/logfields"
)

// ErrNotRepository is returned by Open when path is not inside a git work tree.
var ErrNotRepository = stdErrors.New("not a git repository")

// Repo is an opened work tree.
type Repo struct {
	path string
	repo *git.Repository
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if stdErrors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNotRepository
	}
	if err != nil {
		return nil, errors.GitError("open repository").WithCause(err).WithContext("path", path).Build()
	}
	return &Repo{path: path, repo: repo}, nil
}

// CurrentBranch returns the checked-out branch name. A detached HEAD is reported as
// "HEAD@<short hash>".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.GitError("resolve HEAD").WithCause(err).Build()
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "HEAD@" + head.Hash().String()[:8], nil
}

// HeadCommit returns the full hash HEAD points at.
func (r *Repo) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.GitError("resolve HEAD").WithCause(err).Build()
	}
	return head.Hash().String(), nil
}

// IsClean reports whether the work tree has no modifications.
func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return st.IsClean(), nil
}

// Checkout switches to branch. A branch that only exists as origin/<branch> is created
// locally from the remote-tracking ref. Local modifications make the checkout fail instead
// of being overwritten.
func (r *Repo) Checkout(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	local := plumbing.NewBranchReferenceName(branch)
	if _, err := r.repo.Reference(local, true); err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local}); err != nil {
			return checkoutError(branch, err)
		}
		slog.Debug("Checked out branch", logfields.Branch(branch), logfields.Path(r.path))
		return nil
	}

	remote, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return errors.GitError("branch not found").
			WithContext("branch", branch).
			Build()
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: remote.Hash(), Create: true}); err != nil {
		return checkoutError(branch, err)
	}
	slog.Debug("Created branch from origin", logfields.Branch(branch), logfields.Path(r.path))
	return nil
}

func checkoutError(branch string, err error) error {
	msg := "checkout failed"
	if stdErrors.Is(err, git.ErrUnstagedChanges) {
		msg = "checkout blocked by local changes"
	}
	return errors.GitError(msg).WithCause(err).WithContext("branch", branch).Build()
}
