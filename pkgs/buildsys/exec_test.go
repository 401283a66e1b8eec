// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildsys

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestMergeEnv(t *testing.T) {
	got := MergeEnv([]string{"B=2", "A=1", "broken"}, map[string]string{"A": "x", "C": "3"})
	want := []string{"A=x", "B=2", "C=3"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("MergeEnv = %v, want %v", got, want)
	}
}

func TestPrefixEnv(t *testing.T) {
	prefix := t.TempDir()
	includeDir := filepath.Join(prefix, "include")
	libDir := filepath.Join(prefix, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")
	for _, d := range []string{includeDir, libDir, pkgconfigDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	for _, key := range []string{
		"PKG_CONFIG_PATH", "CMAKE_PREFIX_PATH", "CMAKE_INCLUDE_PATH",
		"CMAKE_LIBRARY_PATH", "INCLUDE", "LIB", "CPPFLAGS", "LDFLAGS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("CMAKE_PREFIX_PATH", "/usr/local")

	env := PrefixEnv(prefix)

	sep := string(os.PathListSeparator)
	for key, want := range map[string]string{
		"PKG_CONFIG_PATH":    pkgconfigDir,
		"CMAKE_PREFIX_PATH":  prefix + sep + "/usr/local",
		"CMAKE_INCLUDE_PATH": includeDir,
		"CMAKE_LIBRARY_PATH": libDir,
	} {
		if got := env[key]; got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if runtime.GOOS != "windows" {
		if got := env["CPPFLAGS"]; got != "-I"+includeDir {
			t.Errorf("CPPFLAGS = %q, want %q", got, "-I"+includeDir)
		}
		if got := env["LDFLAGS"]; got != "-L"+libDir {
			t.Errorf("LDFLAGS = %q, want %q", got, "-L"+libDir)
		}
	}

	// The process environment is left alone.
	if got := os.Getenv("CMAKE_PREFIX_PATH"); got != "/usr/local" {
		t.Errorf("process CMAKE_PREFIX_PATH = %q, want unchanged", got)
	}
}

func TestPrefixEnvEmptyPrefix(t *testing.T) {
	prefix := t.TempDir()
	t.Setenv("CMAKE_PREFIX_PATH", "")
	env := PrefixEnv(prefix)
	if _, ok := env["PKG_CONFIG_PATH"]; ok {
		t.Errorf("PKG_CONFIG_PATH set for empty prefix: %v", env)
	}
	if _, ok := env["CPPFLAGS"]; ok {
		t.Errorf("CPPFLAGS set for empty prefix: %v", env)
	}
	if env["CMAKE_PREFIX_PATH"] != prefix {
		t.Errorf("CMAKE_PREFIX_PATH = %q, want %q", env["CMAKE_PREFIX_PATH"], prefix)
	}
}

func TestAppendFlag(t *testing.T) {
	if got := AppendFlag("-Ifoo", "-Ibar"); got != "-Ifoo -Ibar" {
		t.Errorf("AppendFlag = %q", got)
	}
	if got := AppendFlag("", "-Ibar"); got != "-Ibar" {
		t.Errorf("AppendFlag on empty = %q", got)
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 4}
	tb.Write([]byte("abc"))
	tb.Write([]byte("defg"))
	if got := string(tb.buf); got != "defg" {
		t.Errorf("tail = %q, want %q", got, "defg")
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
}

func TestExecRunner(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout}
	err := r.Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", `pwd; echo "$DEPSTRAP_TEST"`},
		Dir:  dir,
		Env:  map[string]string{"DEPSTRAP_TEST": "it works"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "it works") {
		t.Errorf("stdout = %q, missing env value", out)
	}
	if !strings.Contains(out, filepath.Base(dir)) {
		t.Errorf("stdout = %q, want working dir %s", out, dir)
	}
}

func TestExecRunnerFailure(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{}
	err := r.Run(context.Background(), Command{Path: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	if err == nil {
		t.Fatal("Run: want error")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("err = %v, want exit status 3", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %q, want stderr folded in", err)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := &ExecRunner{}
	err := r.Run(ctx, Command{Path: "sh", Args: []string{"-c", "exec sleep 10"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
