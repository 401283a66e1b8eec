// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildsys

import "context"

// Config carries everything a toolchain needs to configure one dependency.
type Config struct {
	SourceDir string            // top-level build description
	BuildDir  string            // fresh, dependency-scoped
	Prefix    string            // shared install prefix
	Mode      string            // build mode, e.g. "Debug" or "Release"
	Options   map[string]string // extra configure flags
}

// Toolchain captures the configure/build/install lifecycle shared by build
// helpers (CMake, Autotools, etc).
type Toolchain interface {
	// Configure generates a build description for cfg.SourceDir in
	// cfg.BuildDir, targeting installation under cfg.Prefix.
	Configure(ctx context.Context, cfg Config) error

	// Build compiles what Configure described in buildDir.
	Build(ctx context.Context, buildDir, mode string) error

	// Install copies built artifacts into the prefix chosen at configure time.
	Install(ctx context.Context, buildDir, mode string) error
}
