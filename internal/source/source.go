// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source acquires dependency sources, dispatching on how each
// dependency is published.
package source

import (
	"context"
	"fmt"

	"github.com/goplus/depstrap/internal/vcs"
	"github.com/goplus/depstrap/pkgs/dep"
)

// Assets downloads non-repository dependencies.
type Assets interface {
	Download(ctx context.Context, url, dest string) error
	Extract(ctx context.Context, url, destDir string) error
}

// Router fetches git repositories through a VCS and everything else
// through Assets.
type Router struct {
	vcs    vcs.VCS
	assets Assets
}

// NewRouter creates a Router.
func NewRouter(v vcs.VCS, assets Assets) *Router {
	return &Router{vcs: v, assets: assets}
}

// Fetch acquires d into dir, which must not exist yet. For a git dependency
// with a ref this is a clone followed by a checkout of the ref.
func (r *Router) Fetch(ctx context.Context, d *dep.Descriptor, dir string) error {
	switch kind := d.EffectiveKind(); kind {
	case dep.KindGit:
		if err := r.vcs.Clone(ctx, d.URL, dir); err != nil {
			return err
		}
		if d.Ref == "" {
			return nil
		}
		return r.vcs.Checkout(ctx, dir, dep.CheckoutRef(d.Ref))
	case dep.KindFile:
		return r.assets.Download(ctx, d.URL, dir)
	case dep.KindArchive:
		return r.assets.Extract(ctx, d.URL, dir)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}

// AtRef reports whether the checkout in dir is at d's ref. Dependencies
// without a ref, or not acquired with git, are always at their ref.
// A ref the checkout does not know yet counts as a mismatch.
func (r *Router) AtRef(ctx context.Context, d *dep.Descriptor, dir string) (bool, error) {
	if d.Ref == "" || d.EffectiveKind() != dep.KindGit {
		return true, nil
	}
	head, err := r.vcs.Head(ctx, dir)
	if err != nil {
		return false, err
	}
	want, err := r.vcs.Resolve(ctx, dir, dep.CheckoutRef(d.Ref))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return head == want, nil
}

// DefaultBranch is what a checkout without a ref follows: the remote's
// default branch as recorded at clone time.
const DefaultBranch = "origin/HEAD"

// Update moves an existing checkout to d's ref, fetching first so that
// refs published after the original clone are found. Without a ref the
// checkout moves to DefaultBranch.
func (r *Router) Update(ctx context.Context, d *dep.Descriptor, dir string) error {
	if kind := d.EffectiveKind(); kind != dep.KindGit {
		return fmt.Errorf("cannot update %s dependency in place", kind)
	}
	if err := r.vcs.Fetch(ctx, dir); err != nil {
		return err
	}
	if d.Ref == "" {
		return r.vcs.Checkout(ctx, dir, DefaultBranch)
	}
	return r.vcs.Checkout(ctx, dir, dep.CheckoutRef(d.Ref))
}

// Revision returns the commit a git checkout is at, or "" for assets.
func (r *Router) Revision(ctx context.Context, d *dep.Descriptor, dir string) (string, error) {
	if d.EffectiveKind() != dep.KindGit {
		return "", nil
	}
	return r.vcs.Head(ctx, dir)
}
