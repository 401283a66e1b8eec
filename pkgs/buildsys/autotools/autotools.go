// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package autotools wraps the classic configure/make/make-install workflow.
package autotools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/depstrap/pkgs/buildsys"
)

// AutoTools drives Autotools-style builds out of tree: configure runs inside
// the dependency's build directory, never inside the checkout.
type AutoTools struct {
	runner buildsys.Runner
	shell  string
	make   string
}

var _ buildsys.Toolchain = (*AutoTools)(nil)

// Option configures AutoTools.
type Option func(*AutoTools)

// WithRunner sets the runner commands go through.
func WithRunner(r buildsys.Runner) Option {
	return func(a *AutoTools) { a.runner = r }
}

// WithMake sets a custom make executable, e.g. "gmake".
func WithMake(path string) Option {
	return func(a *AutoTools) { a.make = path }
}

// WithShell sets the POSIX shell configure scripts run under.
func WithShell(path string) Option {
	return func(a *AutoTools) { a.shell = path }
}

// New returns a ready-to-use AutoTools.
func New(opts ...Option) *AutoTools {
	a := &AutoTools{shell: "sh", make: "make"}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = &buildsys.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	return a
}

// modeFlags maps CMake-style build modes onto compiler flags.
var modeFlags = map[string]string{
	"Debug":          "-O0 -g",
	"Release":        "-O2 -DNDEBUG",
	"RelWithDebInfo": "-O2 -g -DNDEBUG",
	"MinSizeRel":     "-Os -DNDEBUG",
}

// Configure runs <source>/configure --prefix=<prefix> from the build
// directory. An option KEY=VALUE becomes --KEY=VALUE, and KEY with an empty
// value becomes --KEY.
func (a *AutoTools) Configure(ctx context.Context, cfg buildsys.Config) error {
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return err
	}
	script := filepath.Join(cfg.SourceDir, "configure")
	if _, err := os.Stat(script); err != nil {
		if _, acErr := os.Stat(filepath.Join(cfg.SourceDir, "configure.ac")); acErr != nil {
			return fmt.Errorf("no configure script in %s", cfg.SourceDir)
		}
		if err := a.runner.Run(ctx, buildsys.Command{
			Path: "autoreconf",
			Args: []string{"-fi"},
			Dir:  cfg.SourceDir,
		}); err != nil {
			return err
		}
	}

	args := []string{script}
	if cfg.Prefix != "" {
		args = append(args, "--prefix="+cfg.Prefix)
	}
	args = append(args, optionArgs(cfg.Options)...)

	env := buildsys.PrefixEnv(cfg.Prefix)
	if flags, ok := modeFlags[cfg.Mode]; ok {
		env["CFLAGS"] = buildsys.AppendFlag(os.Getenv("CFLAGS"), flags)
		env["CXXFLAGS"] = buildsys.AppendFlag(os.Getenv("CXXFLAGS"), flags)
	}
	return a.runner.Run(ctx, buildsys.Command{
		Path: a.shell,
		Args: args,
		Dir:  cfg.BuildDir,
		Env:  env,
	})
}

// Build runs make in the build directory.
func (a *AutoTools) Build(ctx context.Context, buildDir, mode string) error {
	return a.runner.Run(ctx, buildsys.Command{Path: a.make, Dir: buildDir})
}

// Install runs make install in the build directory.
func (a *AutoTools) Install(ctx context.Context, buildDir, mode string) error {
	return a.runner.Run(ctx, buildsys.Command{Path: a.make, Args: []string{"install"}, Dir: buildDir})
}

func optionArgs(options map[string]string) []string {
	if len(options) == 0 {
		return nil
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := options[k]; v != "" {
			args = append(args, "--"+k+"="+v)
			continue
		}
		args = append(args, "--"+k)
	}
	return args
}
