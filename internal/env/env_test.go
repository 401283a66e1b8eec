// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestRoot(t *testing.T) {
	t.Setenv("DEPSTRAP_ROOT", "")
	if got := Root(); got != DefaultRoot {
		t.Errorf("Root() = %q, want %q", got, DefaultRoot)
	}

	t.Setenv("DEPSTRAP_ROOT", "/opt/deps")
	if got := Root(); got != "/opt/deps" {
		t.Errorf("Root() = %q, want %q", got, "/opt/deps")
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("DEPSTRAP_CONFIG", "")
	if got := ConfigFile(); got != DefaultConfig {
		t.Errorf("ConfigFile() = %q, want %q", got, DefaultConfig)
	}
	t.Setenv("DEPSTRAP_CONFIG", "ci.toml")
	if got := ConfigFile(); got != "ci.toml" {
		t.Errorf("ConfigFile() = %q, want %q", got, "ci.toml")
	}
}

func TestLayout(t *testing.T) {
	root := t.TempDir()
	l, err := NewLayout(root, "")
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if l.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %q, want %q", l.Prefix, DefaultPrefix)
	}

	for got, want := range map[string]string{
		l.PrefixDir():      filepath.Join(root, "install"),
		l.DepDir("glfw"):   filepath.Join(root, "glfw"),
		l.BuildDir("glfw"): filepath.Join(root, "glfw", "build"),
		l.LockPath():       filepath.Join(root, LockName),
		l.ManifestPath():   filepath.Join(root, ManifestName),
	} {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	for _, name := range []string{"install", LockName, ManifestName} {
		if !slices.Contains(l.Reserved(), name) {
			t.Errorf("Reserved() missing %q", name)
		}
	}
}

func TestLayoutRelativeRoot(t *testing.T) {
	l, err := NewLayout("thirdparty", "prefix")
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if !filepath.IsAbs(l.Root) {
		t.Errorf("Root = %q, want absolute", l.Root)
	}
	if filepath.Base(l.PrefixDir()) != "prefix" {
		t.Errorf("PrefixDir = %q", l.PrefixDir())
	}
}
