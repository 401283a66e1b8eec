// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Entry records the last pipeline of one dependency. Presence on disk
// decides whether a dependency is fetched; Incomplete marks a pipeline that
// started changing the tree but never reached DONE.
type Entry struct {
	Ref        string    `json:"ref,omitempty"`
	Revision   string    `json:"revision,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Built      bool      `json:"built"`
	Action     Action    `json:"action,omitempty"`
	Incomplete bool      `json:"incomplete,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Manifest maps dependency names to their entries.
type Manifest struct {
	Deps map[string]*Entry `json:"deps"`
}

// Get returns the entry for name.
func (m *Manifest) Get(name string) (*Entry, bool) {
	e, ok := m.Deps[name]
	return e, ok
}

// Set replaces the entry for name.
func (m *Manifest) Set(name string, e *Entry) {
	if m.Deps == nil {
		m.Deps = make(map[string]*Entry)
	}
	m.Deps[name] = e
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to path, replacing it in one rename.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
