// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/goplus/depstrap/pkgs/buildsys"
	"github.com/goplus/depstrap/pkgs/dep"
)

// recorder is the call log shared by every fake, so tests can assert the
// interleaving of collaborator calls across dependencies.
type recorder struct {
	calls []string
	fail  map[string]error // keyed by call, e.g. "configure alpha"
	block map[string]bool  // calls that wait for their context to end
	hook  map[string]func()
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]error{}, block: map[string]bool{}, hook: map[string]func(){}}
}

func (r *recorder) call(ctx context.Context, call string) error {
	r.calls = append(r.calls, call)
	if h := r.hook[call]; h != nil {
		h()
	}
	if r.block[call] {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.fail[call]
}

func (r *recorder) reset() {
	r.calls = nil
}

// fakeFetcher materializes a dependency as a directory holding a SOURCE
// file with the ref it was fetched at.
type fakeFetcher struct {
	rec *recorder
}

func writeSource(dir, ref string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "SOURCE"), []byte(ref), 0o644)
}

func readSource(dir string) string {
	data, _ := os.ReadFile(filepath.Join(dir, "SOURCE"))
	return string(data)
}

func (f *fakeFetcher) Fetch(ctx context.Context, d *dep.Descriptor, dir string) error {
	if err := f.rec.call(ctx, "fetch "+d.Name); err != nil {
		return err
	}
	return writeSource(dir, d.Ref)
}

func (f *fakeFetcher) AtRef(ctx context.Context, d *dep.Descriptor, dir string) (bool, error) {
	if err := f.rec.call(ctx, "atref "+d.Name); err != nil {
		return false, err
	}
	return readSource(dir) == d.Ref, nil
}

func (f *fakeFetcher) Update(ctx context.Context, d *dep.Descriptor, dir string) error {
	if err := f.rec.call(ctx, "update "+d.Name); err != nil {
		return err
	}
	return writeSource(dir, d.Ref)
}

func (f *fakeFetcher) Revision(ctx context.Context, d *dep.Descriptor, dir string) (string, error) {
	return "rev-" + readSource(dir), nil
}

// fakeToolchain writes a CMakeCache.txt on configure and installs
// lib<name>.a into the prefix.
type fakeToolchain struct {
	rec     *recorder
	configs []buildsys.Config
	seen    map[string][]string // libraries visible in the prefix at configure time
	prefix  map[string]string   // build dir -> prefix
}

func newFakeToolchain(rec *recorder) *fakeToolchain {
	return &fakeToolchain{rec: rec, seen: map[string][]string{}, prefix: map[string]string{}}
}

func depName(buildDir string) string {
	return filepath.Base(filepath.Dir(buildDir))
}

func (f *fakeToolchain) Configure(ctx context.Context, cfg buildsys.Config) error {
	name := depName(cfg.BuildDir)
	f.configs = append(f.configs, cfg)
	libs, _ := filepath.Glob(filepath.Join(cfg.Prefix, "lib", "*.a"))
	seen := []string{}
	for _, lib := range libs {
		seen = append(seen, filepath.Base(lib))
	}
	sort.Strings(seen)
	f.seen[name] = seen
	if err := f.rec.call(ctx, "configure "+name); err != nil {
		return err
	}
	f.prefix[cfg.BuildDir] = cfg.Prefix
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.BuildDir, "CMakeCache.txt"), []byte(cfg.Mode), 0o644)
}

func (f *fakeToolchain) Build(ctx context.Context, buildDir, mode string) error {
	return f.rec.call(ctx, "build "+depName(buildDir))
}

func (f *fakeToolchain) Install(ctx context.Context, buildDir, mode string) error {
	name := depName(buildDir)
	if err := f.rec.call(ctx, "install "+name); err != nil {
		return err
	}
	lib := filepath.Join(f.prefix[buildDir], "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lib, "lib"+name+".a"), []byte(mode), 0o644)
}

// fakeStager records post-install steps without copying anything.
type fakeStager struct {
	rec *recorder
}

func (f *fakeStager) Stage(ctx context.Context, depDir, prefix string, steps []dep.CopyStep) error {
	return f.rec.call(ctx, "stage "+filepath.Base(depDir))
}
