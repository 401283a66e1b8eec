// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/goplus/depstrap/pkgs/dep"
)

//go:embed default.toml
var defaultRegistry []byte

// Default returns the built-in registry.
func Default(reserved ...string) (*Registry, error) {
	return Parse("default.toml", defaultRegistry, reserved...)
}

// Load reads the registry file at path. The format follows the extension:
// .toml, .yaml/.yml, .hcl or .json.
func Load(path string, reserved ...string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(path, data, reserved...)
}

// Parse decodes data using the format implied by filename and validates the
// result.
func Parse(filename string, data []byte, reserved ...string) (*Registry, error) {
	var (
		entries []dep.Descriptor
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		entries, err = parseTOML(data)
	case ".yaml", ".yml":
		entries, err = parseYAML(data)
	case ".json":
		entries, err = parseJSON(data)
	case ".hcl":
		entries, err = parseHCL(filename, data)
	default:
		err = fmt.Errorf("unsupported registry format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalid, filename, err)
	}
	return New(entries, reserved...)
}

type copyStep struct {
	From string `toml:"from" yaml:"from" json:"from"`
	To   string `toml:"to" yaml:"to" json:"to"`
}

type entry struct {
	Name         string            `toml:"name" yaml:"name" json:"name"`
	URL          string            `toml:"url" yaml:"url" json:"url"`
	Ref          string            `toml:"ref" yaml:"ref" json:"ref"`
	Kind         string            `toml:"kind" yaml:"kind" json:"kind"`
	Build        bool              `toml:"build" yaml:"build" json:"build"`
	BuildSystem  string            `toml:"build_system" yaml:"build_system" json:"build_system"`
	SourceSubdir string            `toml:"source_subdir" yaml:"source_subdir" json:"source_subdir"`
	Options      map[string]string `toml:"options" yaml:"options" json:"options"`
	PostInstall  []copyStep        `toml:"post_install" yaml:"post_install" json:"post_install"`
}

func (e *entry) descriptor() dep.Descriptor {
	d := dep.Descriptor{
		Name:         e.Name,
		URL:          e.URL,
		Ref:          e.Ref,
		Kind:         dep.Kind(e.Kind),
		Build:        e.Build,
		BuildSystem:  dep.BuildSystem(e.BuildSystem),
		SourceSubdir: e.SourceSubdir,
		Options:      e.Options,
	}
	for _, s := range e.PostInstall {
		d.PostInstall = append(d.PostInstall, dep.CopyStep{From: s.From, To: s.To})
	}
	return d
}

func descriptors(entries []entry) []dep.Descriptor {
	out := make([]dep.Descriptor, len(entries))
	for i := range entries {
		out[i] = entries[i].descriptor()
	}
	return out
}

// tomlFile is laid out as a [[dependency]] array of tables.
type tomlFile struct {
	Dependency []entry `toml:"dependency"`
}

func parseTOML(data []byte) ([]dep.Descriptor, error) {
	var f tomlFile
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	return descriptors(f.Dependency), nil
}

type documentFile struct {
	Dependencies []entry `yaml:"dependencies" json:"dependencies"`
}

func parseYAML(data []byte) ([]dep.Descriptor, error) {
	var f documentFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return descriptors(f.Dependencies), nil
}

func parseJSON(data []byte) ([]dep.Descriptor, error) {
	var f documentFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return descriptors(f.Dependencies), nil
}

type hclCopyStep struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type hclEntry struct {
	Name         string            `hcl:"name,label"`
	URL          string            `hcl:"url"`
	Ref          string            `hcl:"ref,optional"`
	Kind         string            `hcl:"kind,optional"`
	Build        bool              `hcl:"build,optional"`
	BuildSystem  string            `hcl:"build_system,optional"`
	SourceSubdir string            `hcl:"source_subdir,optional"`
	Options      map[string]string `hcl:"options,optional"`
	PostInstall  []hclCopyStep     `hcl:"post_install,block"`
}

type hclFile struct {
	Dependencies []hclEntry `hcl:"dependency,block"`
}

// hclContext exposes the host platform so registries can vary options:
//
//	options = { GLFW_BUILD_WAYLAND = platform.os == "linux" ? "ON" : "OFF" }
func hclContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"platform": cty.ObjectVal(map[string]cty.Value{
				"os":   cty.StringVal(runtime.GOOS),
				"arch": cty.StringVal(runtime.GOARCH),
			}),
		},
	}
}

func parseHCL(filename string, data []byte) ([]dep.Descriptor, error) {
	var f hclFile
	if err := hclsimple.Decode(filename, data, hclContext(), &f); err != nil {
		return nil, err
	}
	entries := make([]entry, len(f.Dependencies))
	for i, h := range f.Dependencies {
		entries[i] = entry{
			Name:         h.Name,
			URL:          h.URL,
			Ref:          h.Ref,
			Kind:         h.Kind,
			Build:        h.Build,
			BuildSystem:  h.BuildSystem,
			SourceSubdir: h.SourceSubdir,
			Options:      h.Options,
		}
		for _, s := range h.PostInstall {
			entries[i].PostInstall = append(entries[i].PostInstall, copyStep(s))
		}
	}
	return descriptors(entries), nil
}
