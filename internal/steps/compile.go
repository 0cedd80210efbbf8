package steps

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/runner"
)

// BuildCore compiles the core application in the app directory.
func (b *Builder) BuildCore(ctx context.Context) error {
	dir := b.appDir()
	if !exists(dir) {
		return missingDir("core source directory not found", dir)
	}
	args := []string{"build"}
	if b.cfg.Build.Release {
		args = append(args, "--release")
	}
	return b.run(ctx, commands(b.cfg.Commands.BuildCore, dir, runner.Exec("cargo", args...))...)
}

// RunTests runs the core test suite.
func (b *Builder) RunTests(ctx context.Context) error {
	dir := b.appDir()
	if !exists(dir) {
		return missingDir("core source directory not found", dir)
	}
	return b.run(ctx, commands(b.cfg.Commands.Test, dir, runner.Exec("cargo", "test"))...)
}

// BuildFrontend installs frontend dependencies and builds the web assets.
func (b *Builder) BuildFrontend(ctx context.Context) error {
	dir := b.guiDir()
	if !exists(dir) {
		return missingDir("frontend directory not found", dir)
	}
	return b.run(ctx, commands(b.cfg.Commands.Frontend, dir,
		runner.Exec("npm", "install"),
		runner.Exec("npm", "run", "build"))...)
}

// BuildDesktop bundles the desktop application. Debug builds pass --debug through to the
// bundler.
func (b *Builder) BuildDesktop(ctx context.Context) error {
	dir := b.guiDir()
	if !exists(dir) {
		return missingDir("frontend directory not found", dir)
	}
	args := []string{"run", "tauri", "build"}
	if !b.cfg.Build.Release {
		args = append(args, "--", "--debug")
	}
	return b.run(ctx, commands(b.cfg.Commands.Desktop, dir, runner.Exec("npm", args...))...)
}

func missingDir(msg, dir string) error {
	return errors.BuildError(fmt.Sprintf("%s: %s", msg, dir)).WithContext("path", dir).Build()
}
