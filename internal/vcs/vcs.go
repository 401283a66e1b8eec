// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vcs drives the git command line for dependency checkouts.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// VCS defines the interface for version control operations.
type VCS interface {
	// Clone clones remote into dir. dir must not exist yet.
	Clone(ctx context.Context, remote, dir string) error

	// Checkout moves the working tree in dir to ref.
	// ref can be a branch, a tag (optionally written as "tags/<tag>")
	// or a commit hash.
	Checkout(ctx context.Context, dir, ref string) error

	// Head returns the commit hash the working tree in dir is at.
	Head(ctx context.Context, dir string) (string, error)

	// Resolve returns the commit hash ref names in dir.
	Resolve(ctx context.Context, dir, ref string) (string, error)

	// Fetch updates the remote branches and tags of the repository in dir.
	Fetch(ctx context.Context, dir string) error
}

// gitVCS implements VCS using git.
type gitVCS struct {
	git string
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, dir string) error {
	if err := g.run(ctx, "", "clone", "--", remote, dir); err != nil {
		return fmt.Errorf("clone %s: %w", remote, err)
	}
	return nil
}

func (g *gitVCS) Checkout(ctx context.Context, dir, ref string) error {
	if err := g.run(ctx, dir, "checkout", "--quiet", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) Head(ctx context.Context, dir string) (string, error) {
	return g.Resolve(ctx, dir, "HEAD")
}

func (g *gitVCS) Resolve(ctx context.Context, dir, ref string) (string, error) {
	output, err := g.output(ctx, dir, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	hash := strings.TrimSpace(output)
	if hash == "" {
		return "", fmt.Errorf("resolve %s: unknown revision", ref)
	}
	return hash, nil
}

func (g *gitVCS) Fetch(ctx context.Context, dir string) error {
	if err := g.run(ctx, dir, "fetch", "--tags", "--force", "origin"); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
