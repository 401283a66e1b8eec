// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"os"
	"path/filepath"
)

const (
	DefaultRoot   = "thirdparty"
	DefaultPrefix = "install"
	DefaultMode   = "Debug"
	DefaultConfig = "depstrap.toml"

	LockName     = ".depstrap.lock"
	ManifestName = ".depstrap.json"
	BuildName    = "build"
)

// Root returns the dependency root: $DEPSTRAP_ROOT, or DefaultRoot relative
// to the working directory.
func Root() string {
	if dir := os.Getenv("DEPSTRAP_ROOT"); dir != "" {
		return dir
	}
	return DefaultRoot
}

// ConfigFile returns the run configuration path: $DEPSTRAP_CONFIG, or
// DefaultConfig in the working directory.
func ConfigFile() string {
	if path := os.Getenv("DEPSTRAP_CONFIG"); path != "" {
		return path
	}
	return DefaultConfig
}

// Layout resolves every on-disk location below a dependency root.
//
//	<Root>/
//	  .depstrap.lock
//	  .depstrap.json
//	  <name>/          # presence == acquired
//	    build/         # purged before a forced rebuild
//	  <Prefix>/        # shared install prefix
type Layout struct {
	Root   string
	Prefix string // directory name of the install prefix below Root
}

// NewLayout returns a Layout with an absolute root. An empty prefix means
// DefaultPrefix.
func NewLayout(root, prefix string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Layout{Root: abs, Prefix: prefix}, nil
}

// PrefixDir returns the shared install prefix.
func (l Layout) PrefixDir() string {
	return filepath.Join(l.Root, l.Prefix)
}

// DepDir returns the checkout (or file) location of the named dependency.
func (l Layout) DepDir(name string) string {
	return filepath.Join(l.Root, name)
}

// BuildDir returns the build directory of the named dependency.
func (l Layout) BuildDir(name string) string {
	return filepath.Join(l.Root, name, BuildName)
}

// LockPath returns the file locked for the duration of a run.
func (l Layout) LockPath() string {
	return filepath.Join(l.Root, LockName)
}

// ManifestPath returns the file recording completed installs.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Root, ManifestName)
}

// Reserved returns the names below Root no dependency may use.
func (l Layout) Reserved() []string {
	return []string{l.Prefix, LockName, ManifestName}
}
