package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/gitops"
	"git.home.luguber.info/inful/buildpilot/internal/manifest"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// PackageDistribution copies the desktop bundles and the standalone binary into the output
// directory. Missing artifacts are warnings.
func (b *Builder) PackageDistribution(ctx context.Context) error {
	out := b.outputDir()
	if err := os.MkdirAll(out, 0o750); err != nil {
		return errors.FileSystemError("create output directory").WithCause(err).WithContext("path", out).Build()
	}
	profile := b.cfg.BuildProfile()

	if b.cfg.Build.GUI {
		bundles := filepath.Join(b.guiDir(), "src-tauri", "target", profile, "bundle")
		if exists(bundles) {
			n, err := copyDir(ctx, bundles, out)
			if err != nil {
				return errors.FileSystemError("copy desktop bundles").WithCause(err).WithContext("path", bundles).Build()
			}
			b.logf("Copied %d bundle files from %s", n, bundles)
		} else {
			b.logf("⚠ No desktop bundles found at %s", bundles)
		}
	}

	binary := executableName(b.cfg.Project.BinaryName, b.goos)
	src := filepath.Join(b.appDir(), "target", profile, binary)
	if exists(src) {
		if err := copyFile(src, filepath.Join(out, binary)); err != nil {
			return errors.FileSystemError("copy standalone binary").WithCause(err).WithContext("path", src).Build()
		}
		b.logf("Copied %s", binary)
	} else {
		b.logf("⚠ Standalone binary not found at %s", src)
	}

	b.logf("📦 Distribution ready in %s", out)
	return nil
}

// Finalize writes build_manifest.json into the output directory.
func (b *Builder) Finalize(_ context.Context) error {
	out := b.outputDir()
	facts := b.facts()
	m := &manifest.BuildManifest{
		Project:   b.cfg.Project.Name,
		Version:   b.cfg.Project.Version,
		BuildTime: b.now().UTC(),
		Configuration: manifest.Configuration{
			Branch:       b.cfg.Build.Branch,
			Commit:       b.headCommit(),
			ReleaseMode:  b.cfg.Build.Release,
			Platform:     facts.Platform,
			Architecture: facts.Architecture,
		},
	}
	if b.summary != nil {
		snap := b.summary.Snapshot()
		m.RunID = snap.RunID
		for _, st := range snap.Stages {
			m.Stages = append(m.Stages, manifest.StageEntry{
				Name:     string(st.Name),
				Status:   string(st.Status),
				Duration: stage.FormatDuration(st.Duration),
			})
		}
	}
	if exists(out) {
		arts, err := manifest.ScanArtifacts(out)
		if err != nil {
			return errors.FileSystemError("scan output directory").WithCause(err).WithContext("path", out).Build()
		}
		m.Artifacts = arts
	}

	path, err := m.Write(out)
	if err != nil {
		return errors.FileSystemError("write build manifest").WithCause(err).WithContext("path", out).Build()
	}
	hash, err := m.Hash()
	if err != nil {
		return errors.InternalError("hash build manifest").WithCause(err).Build()
	}
	b.logf("Build manifest written to %s (%d artifacts, hash %s)", path, len(m.Artifacts), shortHash(hash))
	return nil
}

// headCommit returns the project's HEAD commit, or "" outside git.
func (b *Builder) headCommit() string {
	repo, err := gitops.Open(b.projectDir())
	if err != nil {
		return ""
	}
	commit, err := repo.HeadCommit()
	if err != nil {
		return ""
	}
	return commit
}

// copyDir recursively copies a directory tree and returns the number of files copied.
func copyDir(ctx context.Context, src, dst string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		count++
		return copyFile(path, target)
	})
	return count, err
}

// copyFile copies a single file, preserving its permission bits.
func copyFile(src, dst string) error {
	// #nosec G304 -- paths come from the project configuration
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	// #nosec G304 -- paths come from the project configuration
	outFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return outFile.Close()
}
