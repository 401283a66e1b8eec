// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dep defines the dep.Descriptor type along with support code.
package dep

import (
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// Kind tells how a dependency is acquired.
type Kind string

const (
	KindGit     Kind = "git"     // repository cloned with git
	KindFile    Kind = "file"    // single file downloaded as is
	KindArchive Kind = "archive" // tarball downloaded and unpacked
)

// BuildSystem names the toolchain that configures, builds and installs a dependency.
type BuildSystem string

const (
	CMake     BuildSystem = "cmake"
	AutoTools BuildSystem = "autotools"
)

// A CopyStep copies the directory From, relative to the dependency's
// checkout, into To, relative to the install prefix. Existing files are
// merged rather than replaced wholesale.
type CopyStep struct {
	From string
	To   string
}

// A Descriptor is the declarative record for one third-party dependency.
// Descriptors are immutable once a registry has been built from them.
type Descriptor struct {
	Name         string            // on-disk entry name under the dependency root
	URL          string            // repository URL or direct file URL
	Ref          string            // pinned tag or branch; empty means default branch
	Kind         Kind              // empty means inferred from URL
	Build        bool              // run configure/build/install
	BuildSystem  BuildSystem       // empty means CMake
	SourceSubdir string            // subdirectory holding the top-level build description
	Options      map[string]string // extra configure flags
	PostInstall  []CopyStep        // run in order after each successful install
}

// EffectiveKind returns d.Kind, inferring it from the URL when unset.
func (d *Descriptor) EffectiveKind() Kind {
	if d.Kind != "" {
		return d.Kind
	}
	if IsArchiveURL(d.URL) {
		return KindArchive
	}
	return KindGit
}

// EffectiveBuildSystem returns d.BuildSystem, defaulting to CMake.
func (d *Descriptor) EffectiveBuildSystem() BuildSystem {
	if d.BuildSystem == "" {
		return CMake
	}
	return d.BuildSystem
}

// IsArchiveURL reports whether url names a tarball depstrap can unpack.
func IsArchiveURL(url string) bool {
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.zst", ".tzst"} {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// CheckoutRef returns the name handed to "git checkout" for ref.
// Semantic version tags are addressed through tags/ so a branch of the
// same name cannot shadow them.
func CheckoutRef(ref string) string {
	if strings.HasPrefix(ref, "tags/") || strings.HasPrefix(ref, "refs/") {
		return ref
	}
	if semver.IsValid(ref) {
		return "tags/" + ref
	}
	return ref
}

// IsElement reports whether name is usable as a single path element
// directly below the dependency root.
func IsElement(name string) bool {
	if name == "" || name == "." || !filepath.IsLocal(name) {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
