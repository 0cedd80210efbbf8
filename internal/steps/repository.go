package steps

import (
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/buildpilot/internal/gitops"
	"git.home.luguber.info/inful/buildpilot/internal/runner"
)

// PrepareRepository switches the project to the configured branch and updates submodules.
// A project outside git is skipped with a warning. A failed checkout keeps the current branch
// and a failed submodule update is only a warning; cancellation still stops the stage.
func (b *Builder) PrepareRepository(ctx context.Context) error {
	dir := b.projectDir()
	repo, err := gitops.Open(dir)
	if stdErrors.Is(err, gitops.ErrNotRepository) {
		b.logf("⚠ %s is not a git repository; skipping source preparation", dir)
		return nil
	}
	if err != nil {
		return err
	}

	current, err := repo.CurrentBranch()
	if err != nil {
		b.logf("⚠ Could not determine current branch: %v", err)
	}
	target := b.cfg.Build.Branch
	switch {
	case target == "" || target == current:
		b.logf("On branch %s", current)
	default:
		b.logf("Switching branch %s → %s", current, target)
		if err := repo.Checkout(target); err != nil {
			b.logf("⚠ Could not check out %s: %v. Continuing on %s.", target, err, current)
		}
	}
	if commit, err := repo.HeadCommit(); err == nil {
		b.logf("HEAD at %s", shortHash(commit))
	}

	if len(b.cfg.Commands.Submodules) == 0 && !exists(filepath.Join(dir, ".gitmodules")) {
		b.log.Log("No submodules to update")
		return nil
	}
	err = b.run(ctx, commands(b.cfg.Commands.Submodules, dir,
		runner.Exec("git", "submodule", "update", "--init", "--recursive"))...)
	if err == nil || stdErrors.Is(err, context.Canceled) || ctx.Err() != nil {
		return err
	}
	b.logf("⚠ Submodule update failed: %v. Continuing with the current checkout.", err)
	return nil
}

// CleanArtifacts removes previous build outputs. Removal failures are warnings.
func (b *Builder) CleanArtifacts(ctx context.Context) error {
	dirs := []string{
		filepath.Join(b.appDir(), "target"),
		filepath.Join(b.guiDir(), "dist"),
		filepath.Join(b.guiDir(), "src-tauri", "target"),
	}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !exists(dir) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			b.logf("⚠ Could not remove %s: %v", dir, err)
			continue
		}
		b.logf("Removed %s", dir)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
