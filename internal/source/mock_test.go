// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fakeVCS records calls and serves revisions from a ref table.
type fakeVCS struct {
	calls []string
	head  string
	refs  map[string]string
	err   error
}

func (f *fakeVCS) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeVCS) Clone(ctx context.Context, remote, dir string) error {
	return f.record("clone %s %s", remote, dir)
}

func (f *fakeVCS) Checkout(ctx context.Context, dir, ref string) error {
	if err := f.record("checkout %s %s", dir, ref); err != nil {
		return err
	}
	if rev, ok := f.refs[ref]; ok {
		f.head = rev
	}
	return nil
}

func (f *fakeVCS) Head(ctx context.Context, dir string) (string, error) {
	return f.head, f.record("head %s", dir)
}

func (f *fakeVCS) Resolve(ctx context.Context, dir, ref string) (string, error) {
	if err := f.record("resolve %s %s", dir, ref); err != nil {
		return "", err
	}
	rev, ok := f.refs[ref]
	if !ok {
		return "", errors.New("resolve " + ref + ": unknown revision")
	}
	return rev, nil
}

func (f *fakeVCS) Fetch(ctx context.Context, dir string) error {
	return f.record("fetch %s", dir)
}

// fakeAssets records downloads and extractions.
type fakeAssets struct {
	calls []string
}

func (f *fakeAssets) Download(ctx context.Context, url, dest string) error {
	f.calls = append(f.calls, "download "+url+" "+dest)
	return nil
}

func (f *fakeAssets) Extract(ctx context.Context, url, destDir string) error {
	f.calls = append(f.calls, "extract "+url+" "+destDir)
	return nil
}

func joined(calls []string) string {
	return strings.Join(calls, "\n")
}
