// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry holds the ordered, validated list of dependency
// descriptors a run works through.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/goplus/depstrap/pkgs/dep"
)

var (
	// ErrInvalid indicates a malformed descriptor or registry file.
	ErrInvalid = errors.New("invalid descriptor")

	// ErrDuplicate indicates two descriptors share a name.
	ErrDuplicate = errors.New("duplicate name")

	// ErrReserved indicates a name collides with a directory depstrap owns.
	ErrReserved = errors.New("reserved name")
)

// Error describes one problem with one registry entry.
type Error struct {
	Index int    // position in the registry
	Name  string // entry name, may be empty
	Err   error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("registry entry %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("registry entry %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Registry is an immutable, ordered list of descriptors.
type Registry struct {
	entries []dep.Descriptor
}

// New validates entries and returns a Registry holding a private copy of
// them. Names in reserved may not be used by any entry.
// All problems are reported together, joined with errors.Join.
func New(entries []dep.Descriptor, reserved ...string) (*Registry, error) {
	if err := Validate(entries, reserved...); err != nil {
		return nil, err
	}
	r := &Registry{entries: make([]dep.Descriptor, len(entries))}
	for i := range entries {
		r.entries[i] = clone(entries[i])
	}
	return r, nil
}

// Entries returns the descriptors in declared order.
func (r *Registry) Entries() []dep.Descriptor {
	out := make([]dep.Descriptor, len(r.entries))
	for i := range r.entries {
		out[i] = clone(r.entries[i])
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Lookup returns the entry called name.
func (r *Registry) Lookup(name string) (dep.Descriptor, bool) {
	for i := range r.entries {
		if r.entries[i].Name == name {
			return clone(r.entries[i]), true
		}
	}
	return dep.Descriptor{}, false
}

// Validate checks entries without building a Registry.
func Validate(entries []dep.Descriptor, reserved ...string) error {
	var errs []error
	seen := make(map[string]int, len(entries))
	fail := func(i int, name string, err error) {
		errs = append(errs, &Error{Index: i, Name: name, Err: err})
	}

	for i := range entries {
		d := &entries[i]
		switch {
		case d.Name == "":
			fail(i, "", fmt.Errorf("%w: empty name", ErrInvalid))
			continue
		case !dep.IsElement(d.Name):
			fail(i, d.Name, fmt.Errorf("%w: name must be a single path element", ErrInvalid))
			continue
		case slices.Contains(reserved, d.Name):
			fail(i, d.Name, ErrReserved)
			continue
		}
		if first, ok := seen[d.Name]; ok {
			fail(i, d.Name, fmt.Errorf("%w: also declared at entry %d", ErrDuplicate, first))
			continue
		}
		seen[d.Name] = i

		if d.URL == "" {
			fail(i, d.Name, fmt.Errorf("%w: empty url", ErrInvalid))
		}
		kind := d.EffectiveKind()
		switch kind {
		case dep.KindGit, dep.KindFile, dep.KindArchive:
		default:
			fail(i, d.Name, fmt.Errorf("%w: unknown kind %q", ErrInvalid, d.Kind))
		}
		if kind != dep.KindGit && d.Ref != "" {
			fail(i, d.Name, fmt.Errorf("%w: ref is only meaningful for git sources", ErrInvalid))
		}
		if kind == dep.KindFile && (d.Build || len(d.PostInstall) > 0) {
			fail(i, d.Name, fmt.Errorf("%w: a single file cannot be built or staged", ErrInvalid))
		}
		switch d.EffectiveBuildSystem() {
		case dep.CMake, dep.AutoTools:
		default:
			fail(i, d.Name, fmt.Errorf("%w: unknown build system %q", ErrInvalid, d.BuildSystem))
		}
		if d.SourceSubdir != "" && !filepath.IsLocal(d.SourceSubdir) {
			fail(i, d.Name, fmt.Errorf("%w: source_subdir %q escapes the checkout", ErrInvalid, d.SourceSubdir))
		}
		for j, step := range d.PostInstall {
			if step.From == "" || !filepath.IsLocal(step.From) {
				fail(i, d.Name, fmt.Errorf("%w: post_install[%d].from %q is not a local path", ErrInvalid, j, step.From))
			}
			if step.To == "" || !filepath.IsLocal(step.To) {
				fail(i, d.Name, fmt.Errorf("%w: post_install[%d].to %q is not a local path", ErrInvalid, j, step.To))
			}
		}
	}
	return errors.Join(errs...)
}

func clone(d dep.Descriptor) dep.Descriptor {
	d.Options = maps.Clone(d.Options)
	d.PostInstall = slices.Clone(d.PostInstall)
	return d
}
