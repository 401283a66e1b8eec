// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the run configuration from depstrap.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/goplus/depstrap/internal/env"
	"github.com/goplus/depstrap/pkgs/dep"
)

// Config is the run configuration, read once at startup.
type Config struct {
	Root             string          // dependency root
	Prefix           string          // install prefix name below Root
	Mode             string          // build mode
	Rebuild          bool            // global rebuild policy
	RebuildOverrides map[string]bool // per-dependency rebuild policy
	KeepGoing        bool            // continue after a failed dependency
	StepTimeout      time.Duration   // bound on each collaborator call, 0 for none
	Registry         string          // registry file, empty for the embedded one
	Verbose          bool
}

type fileConfig struct {
	Root             string          `toml:"root"`
	Prefix           string          `toml:"prefix"`
	Mode             string          `toml:"mode"`
	Rebuild          bool            `toml:"rebuild"`
	RebuildOverrides map[string]bool `toml:"rebuild_overrides"`
	KeepGoing        bool            `toml:"keep_going"`
	StepTimeout      string          `toml:"step_timeout"`
	Registry         string          `toml:"registry"`
	Verbose          bool            `toml:"verbose"`
}

// Default returns the configuration used when no file sets anything.
// The root honours $DEPSTRAP_ROOT.
func Default() Config {
	return Config{
		Root:   env.Root(),
		Prefix: env.DefaultPrefix,
		Mode:   env.DefaultMode,
	}
}

// Load overlays the TOML file at path on Default. Relative root and registry
// paths in the file are resolved against the file's directory, so a config
// means the same thing from any working directory. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("root") {
		cfg.Root = relativeTo(path, strings.TrimSpace(raw.Root))
	}
	if meta.IsDefined("prefix") {
		cfg.Prefix = strings.TrimSpace(raw.Prefix)
	}
	if meta.IsDefined("mode") {
		cfg.Mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("rebuild") {
		cfg.Rebuild = raw.Rebuild
	}
	if meta.IsDefined("rebuild_overrides") {
		cfg.RebuildOverrides = raw.RebuildOverrides
	}
	if meta.IsDefined("keep_going") {
		cfg.KeepGoing = raw.KeepGoing
	}
	if meta.IsDefined("step_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StepTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse step_timeout: %w", err)
		}
		cfg.StepTimeout = d
	}
	if meta.IsDefined("registry") {
		cfg.Registry = relativeTo(path, strings.TrimSpace(raw.Registry))
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	return cfg, cfg.Validate()
}

// relativeTo resolves p against the directory of the config file at path.
func relativeTo(path, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(path), p)
}

// LoadOptional is Load, except that a missing file yields Default unless
// required is set.
func LoadOptional(path string, required bool) (Config, error) {
	cfg, err := Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the values Load and command-line flags produce.
func (c Config) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, errors.New("root is empty"))
	}
	if !dep.IsElement(c.Prefix) {
		errs = append(errs, fmt.Errorf("prefix %q is not a single path element", c.Prefix))
	}
	if c.Mode == "" {
		errs = append(errs, errors.New("mode is empty"))
	}
	if c.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("step_timeout %v is negative", c.StepTimeout))
	}
	return errors.Join(errs...)
}

// Layout returns the on-disk layout c describes.
func (c Config) Layout() (env.Layout, error) {
	return env.NewLayout(c.Root, c.Prefix)
}
