// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Command is one toolchain invocation. Args are passed to the program
// verbatim; no shell is involved.
type Command struct {
	Path string
	Args []string
	Dir  string            // working directory, empty means current
	Env  map[string]string // overrides on top of the process environment
}

// String renders c for logs only.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes. Nil writers discard output.
// The tail of stderr is always kept and folded into the returned error.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

const (
	stderrTail = 4 << 10

	// waitDelay bounds how long a cancelled command's descendants may keep
	// its output pipes open.
	waitDelay = 2 * time.Second
)

func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	cmd.Stdout = r.Stdout
	tail := &tailBuffer{max: stderrTail}
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", c.Path, ctxErr)
		}
		if msg := strings.TrimSpace(string(tail.buf)); msg != "" {
			return fmt.Errorf("%s: %w\n%s", c, err, msg)
		}
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

// MergeEnv overlays override on base, a list of key=value pairs, and
// returns the result sorted by key.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// PrefixEnv returns environment overrides that let compilers, CMake and
// pkg-config find headers, libraries and .pc files already installed under
// prefix. Existing values are kept after the prefix entries.
// The process environment itself is not modified.
func PrefixEnv(prefix string) map[string]string {
	env := map[string]string{}
	includeDir := filepath.Join(prefix, "include")
	libDir := filepath.Join(prefix, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		env["PKG_CONFIG_PATH"] = prependPath(os.Getenv("PKG_CONFIG_PATH"), pkgconfigDir)
	}
	env["CMAKE_PREFIX_PATH"] = prependPath(os.Getenv("CMAKE_PREFIX_PATH"), prefix)
	if isDir(includeDir) {
		env["CMAKE_INCLUDE_PATH"] = prependPath(os.Getenv("CMAKE_INCLUDE_PATH"), includeDir)
	}
	if isDir(libDir) {
		env["CMAKE_LIBRARY_PATH"] = prependPath(os.Getenv("CMAKE_LIBRARY_PATH"), libDir)
	}

	if runtime.GOOS == "windows" {
		if isDir(includeDir) {
			env["INCLUDE"] = prependPath(os.Getenv("INCLUDE"), includeDir)
		}
		if isDir(libDir) {
			env["LIB"] = prependPath(os.Getenv("LIB"), libDir)
		}
	} else {
		if isDir(includeDir) {
			env["CPPFLAGS"] = AppendFlag(os.Getenv("CPPFLAGS"), "-I"+includeDir)
		}
		if isDir(libDir) {
			env["LDFLAGS"] = AppendFlag(os.Getenv("LDFLAGS"), "-L"+libDir)
		}
	}
	return env
}

// prependPath prepends value to a PATH-style list.
func prependPath(current, value string) string {
	if current == "" {
		return value
	}
	return value + string(os.PathListSeparator) + current
}

// AppendFlag appends a space-separated flag to current.
func AppendFlag(current, flag string) string {
	return strings.TrimSpace(current + " " + flag)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
