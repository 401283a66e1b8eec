// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goplus/depstrap/internal/env"
	"github.com/goplus/depstrap/internal/pipeline"
	"github.com/goplus/depstrap/internal/registry"
	"github.com/goplus/depstrap/pkgs/dep"
)

func TestParseRebuildDeps(t *testing.T) {
	got, err := parseRebuildDeps([]string{"assimp", "glslang=false", " spdlog = true "})
	if err != nil {
		t.Fatalf("parseRebuildDeps: %v", err)
	}
	want := map[string]bool{"assimp": true, "glslang": false, "spdlog": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseRebuildDeps (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"=true", "glfw=maybe"} {
		if _, err := parseRebuildDeps([]string{bad}); err == nil {
			t.Errorf("parseRebuildDeps(%q): want error", bad)
		}
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]dep.Descriptor{
		{Name: "glm", URL: "https://github.com/g-truc/glm.git"},
		{Name: "spdlog", URL: "https://github.com/gabime/spdlog.git", Ref: "v1.13.0", Build: true},
		{Name: "IconsFontAwesome5.h", URL: "https://example.com/IconsFontAwesome5.h", Kind: dep.KindFile},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	if err := writeList(&buf, testRegistry(t)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header plus 3:\n%s", len(lines), buf.String())
	}
	for i, want := range [][]string{
		{"NAME", "KIND", "REF", "BUILD", "URL"},
		{"glm", "git", "-", "-"},
		{"spdlog", "git", "v1.13.0", "cmake"},
		{"IconsFontAwesome5.h", "file", "-", "-"},
	} {
		fields := strings.Fields(lines[i])
		if diff := cmp.Diff(want, fields[:len(want)]); diff != "" {
			t.Errorf("line %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestWriteStatus(t *testing.T) {
	layout, err := env.NewLayout(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(layout.DepDir("spdlog"), 0o755); err != nil {
		t.Fatal(err)
	}
	m := &pipeline.Manifest{}
	m.Set("spdlog", &pipeline.Entry{
		Ref:       "v1.12.0",
		Revision:  "0123456789abcdef0123",
		Mode:      "Debug",
		Built:     true,
		Action:    pipeline.ActionFetched,
		UpdatedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	if err := writeStatus(&buf, testRegistry(t), layout, m); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"absent", "present, ref changed", "0123456789ab", "Debug"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abc") {
		t.Errorf("revision not shortened:\n%s", out)
	}

	if err := os.MkdirAll(layout.DepDir("glm"), 0o755); err != nil {
		t.Fatal(err)
	}
	m.Set("glm", &pipeline.Entry{Incomplete: true, UpdatedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)})
	buf.Reset()
	if err := writeStatus(&buf, testRegistry(t), layout, m); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "present, incomplete") {
		t.Errorf("status missing the incomplete entry:\n%s", buf.String())
	}
}

func TestRegistryProblems(t *testing.T) {
	_, err := registry.New([]dep.Descriptor{
		{Name: "x", URL: "u"},
		{Name: "x", URL: "u"},
		{Name: "y"},
	})
	if err == nil {
		t.Fatal("registry.New: want error")
	}
	lines := registryProblems(err)
	if len(lines) != 2 {
		t.Fatalf("got %d problems, want 2: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "(x)") || !strings.Contains(lines[1], "(y)") {
		t.Errorf("problems = %q", lines)
	}

	_, err = registry.Parse("deps.toml", []byte("[[dependency]\n"))
	if lines := registryProblems(err); len(lines) != 1 {
		t.Errorf("parse error split into %d lines: %q", len(lines), lines)
	}
}

func TestValidateCommand(t *testing.T) {
	t.Setenv("DEPSTRAP_CONFIG", "")
	t.Setenv("DEPSTRAP_ROOT", t.TempDir())
	dir := t.TempDir()

	good := filepath.Join(dir, "deps.yaml")
	if err := os.WriteFile(good, []byte(`
dependencies:
  - name: glm
    url: https://github.com/g-truc/glm.git
  - name: glfw
    url: https://github.com/glfw/glfw.git
    build: true
`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"validate", "--registry", good})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "registry OK: 2 dependencies") {
		t.Errorf("output = %q", out.String())
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(`
dependencies:
  - name: install
    url: https://example.com/install.git
`), 0o644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	rootCmd.SetArgs([]string{"validate", "--registry", bad})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("validate: want error for reserved name")
	}
	if !strings.Contains(out.String(), "reserved name") {
		t.Errorf("output = %q, want the reserved-name problem", out.String())
	}
}
