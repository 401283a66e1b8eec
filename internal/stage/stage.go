// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stage copies extra files from a dependency checkout into the
// install prefix after the dependency's own install has run.
package stage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/depstrap/pkgs/dep"
)

// Copier applies post-install steps with CopyTree.
type Copier struct{}

// Stage runs steps in order. Each step's From is resolved against depDir and
// its To against prefix. It stops at the first failing step.
func (Copier) Stage(ctx context.Context, depDir, prefix string, steps []dep.CopyStep) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(depDir, filepath.FromSlash(step.From))
		dst := filepath.Join(prefix, filepath.FromSlash(step.To))
		if err := CopyTree(src, dst); err != nil {
			return fmt.Errorf("copy %s to %s: %w", step.From, step.To, err)
		}
	}
	return nil
}

// CopyTree merges src into dst. Missing directories are created, existing
// files are overwritten and files only present in dst are kept. File modes
// are preserved and symlinks are recreated rather than followed. A src that
// is a regular file is copied to dst. A missing src is an error.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyEntry(src, dst, info)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return copyEntry(path, target, info)
	})
}

func copyEntry(src, dst string, info fs.FileInfo) error {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		return copySymlink(src, dst)
	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode().Perm())
	}
	return nil
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(link, dst)
}

func copyFile(src, dst string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// O_CREATE ignores perm for files that already exist.
	return os.Chmod(dst, perm)
}
