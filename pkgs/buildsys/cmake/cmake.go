// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"context"
	"os"
	"sort"

	"github.com/goplus/depstrap/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds.
type CMake struct {
	runner    buildsys.Runner
	cmake     string
	generator string
	toolchain string
}

var _ buildsys.Toolchain = (*CMake)(nil)

// Option configures CMake.
type Option func(*CMake)

// WithRunner sets the runner commands go through.
func WithRunner(r buildsys.Runner) Option {
	return func(c *CMake) { c.runner = r }
}

// WithPath sets a custom cmake executable path.
func WithPath(path string) Option {
	return func(c *CMake) { c.cmake = path }
}

// WithGenerator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func WithGenerator(name string) Option {
	return func(c *CMake) { c.generator = name }
}

// WithToolchainFile sets CMAKE_TOOLCHAIN_FILE for every configure.
func WithToolchainFile(path string) Option {
	return func(c *CMake) { c.toolchain = path }
}

// New returns a ready-to-use CMake.
func New(opts ...Option) *CMake {
	c := &CMake{cmake: "cmake"}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = &buildsys.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	return c
}

// Configure runs "cmake -S <source> -B <build>". Options become untyped
// -D definitions; the install prefix, prefix path and build type are fixed
// by cfg and cannot be overridden through Options.
func (c *CMake) Configure(ctx context.Context, cfg buildsys.Config) error {
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return err
	}
	args := []string{"-S", cfg.SourceDir, "-B", cfg.BuildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	args = append(args, definesArgs(c.defines(cfg))...)
	return c.runner.Run(ctx, buildsys.Command{
		Path: c.cmake,
		Args: args,
		Env:  buildsys.PrefixEnv(cfg.Prefix),
	})
}

// Build runs "cmake --build <build> --config <mode>".
func (c *CMake) Build(ctx context.Context, buildDir, mode string) error {
	args := []string{"--build", buildDir}
	if mode != "" {
		args = append(args, "--config", mode)
	}
	return c.runner.Run(ctx, buildsys.Command{Path: c.cmake, Args: args})
}

// Install runs "cmake --install <build> --config <mode>".
func (c *CMake) Install(ctx context.Context, buildDir, mode string) error {
	args := []string{"--install", buildDir}
	if mode != "" {
		args = append(args, "--config", mode)
	}
	return c.runner.Run(ctx, buildsys.Command{Path: c.cmake, Args: args})
}

func (c *CMake) defines(cfg buildsys.Config) map[string]defineValue {
	defines := make(map[string]defineValue, len(cfg.Options)+4)
	for k, v := range cfg.Options {
		defines[k] = defineValue{value: v}
	}
	if cfg.Prefix != "" {
		defines["CMAKE_INSTALL_PREFIX"] = defineValue{value: cfg.Prefix, typeName: "PATH"}
		defines["CMAKE_PREFIX_PATH"] = defineValue{value: cfg.Prefix, typeName: "PATH"}
	}
	if cfg.Mode != "" {
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: cfg.Mode, typeName: "STRING"}
	}
	if c.toolchain != "" {
		defines["CMAKE_TOOLCHAIN_FILE"] = defineValue{value: c.toolchain, typeName: "FILEPATH"}
	}
	return defines
}

func definesArgs(defines map[string]defineValue) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}
