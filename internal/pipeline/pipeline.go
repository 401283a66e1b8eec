// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline drives every registered dependency through
// fetch, configure, build, install and post-install staging, one at a time
// and in registry order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/goplus/depstrap/internal/env"
	"github.com/goplus/depstrap/internal/lockedfile"
	"github.com/goplus/depstrap/internal/registry"
	"github.com/goplus/depstrap/internal/stage"
	"github.com/goplus/depstrap/pkgs/buildsys"
	"github.com/goplus/depstrap/pkgs/dep"
)

// Fetcher acquires dependency sources.
type Fetcher interface {
	// Fetch acquires d into dir, which does not exist yet.
	Fetch(ctx context.Context, d *dep.Descriptor, dir string) error

	// AtRef reports whether the existing checkout in dir is at d's ref.
	AtRef(ctx context.Context, d *dep.Descriptor, dir string) (bool, error)

	// Update moves the existing checkout in dir to d's ref.
	Update(ctx context.Context, d *dep.Descriptor, dir string) error

	// Revision identifies what dir holds, e.g. a commit hash. It may be empty.
	Revision(ctx context.Context, d *dep.Descriptor, dir string) (string, error)
}

// Stager applies post-install copy steps.
type Stager interface {
	Stage(ctx context.Context, depDir, prefix string, steps []dep.CopyStep) error
}

// Options configures an Orchestrator. Fetcher is required.
type Options struct {
	Layout env.Layout
	Mode   string // build mode handed to every toolchain, default env.DefaultMode

	// Rebuild forces present buildable dependencies through the rebuild
	// path. RebuildOverrides takes precedence over it per dependency.
	Rebuild          bool
	RebuildOverrides map[string]bool

	// KeepGoing continues with later dependencies after a failure instead
	// of stopping the run. Cancellation always stops the run.
	KeepGoing bool

	// StepTimeout bounds every collaborator call. Zero means no bound.
	StepTimeout time.Duration

	Fetcher    Fetcher
	Toolchains map[dep.BuildSystem]buildsys.Toolchain
	Stager     Stager // default stage.Copier
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Orchestrator runs the dependency pipelines of one registry.
type Orchestrator struct {
	reg  *registry.Registry
	opts Options
	log  zerolog.Logger
}

// New returns an Orchestrator for reg.
func New(reg *registry.Registry, opts Options) *Orchestrator {
	if reg == nil {
		panic("pipeline.New: nil registry")
	}
	if opts.Fetcher == nil {
		panic("pipeline.New: no Fetcher")
	}
	if opts.Mode == "" {
		opts.Mode = env.DefaultMode
	}
	if opts.Layout.Prefix == "" {
		opts.Layout.Prefix = env.DefaultPrefix
	}
	if opts.Stager == nil {
		opts.Stager = stage.Copier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{reg: reg, opts: opts, log: opts.Logger}
}

// Run works through the registry in order. It holds the root lock for its
// whole duration, so a concurrent run fails fast with lockedfile.ErrLocked.
//
// The returned report covers every dependency that was started. The error
// is non-nil when any dependency failed or the run was cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if err := o.checkOverrides(); err != nil {
		return nil, err
	}
	layout := o.opts.Layout
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return nil, err
	}
	unlock, err := lockedfile.MutexAt(layout.LockPath()).Lock()
	if err != nil {
		return nil, fmt.Errorf("lock dependency root: %w", err)
	}
	defer unlock()

	if err := os.MkdirAll(layout.PrefixDir(), 0o755); err != nil {
		return nil, err
	}

	manifest, err := LoadManifest(layout.ManifestPath())
	if err != nil {
		o.log.Warn().Err(err).Str("path", layout.ManifestPath()).Msg("ignoring unreadable manifest")
		manifest = &Manifest{}
	}

	report := &Report{}
	entries := o.reg.Entries()
	var runErr error
	dirty := false
	for i := range entries {
		if err := ctx.Err(); err != nil {
			runErr = err
			report.Pending = pendingNames(entries[i:])
			break
		}
		d := &entries[i]
		res := o.process(ctx, d, manifest)
		report.Results = append(report.Results, res)

		if res.State == Done && res.Action != ActionSkipped {
			manifest.Set(d.Name, &Entry{
				Ref:       d.Ref,
				Revision:  res.Revision,
				Mode:      o.modeFor(d),
				Built:     d.Build,
				Action:    res.Action,
				UpdatedAt: o.opts.Now(),
			})
			dirty = true
		}
		if res.State != Failed {
			continue
		}
		o.log.Error().Err(res.Err).Str("dep", d.Name).Msg("dependency failed")
		if ctx.Err() != nil || !o.opts.KeepGoing {
			report.Pending = pendingNames(entries[i+1:])
			break
		}
	}

	if dirty {
		if err := manifest.Save(layout.ManifestPath()); err != nil {
			o.log.Warn().Err(err).Msg("cannot write manifest")
		}
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if errors.Is(report.Err(), runErr) {
		runErr = nil
	}
	return report, errors.Join(report.Err(), runErr)
}

func (o *Orchestrator) checkOverrides() error {
	var unknown []string
	for name := range o.opts.RebuildOverrides {
		if _, ok := o.reg.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("rebuild override for unknown dependencies: %v", unknown)
}

func pendingNames(entries []dep.Descriptor) []string {
	var names []string
	for _, d := range entries {
		names = append(names, d.Name)
	}
	return names
}

// rebuild returns the effective rebuild policy for name.
func (o *Orchestrator) rebuild(name string) bool {
	if v, ok := o.opts.RebuildOverrides[name]; ok {
		return v
	}
	return o.opts.Rebuild
}

func (o *Orchestrator) modeFor(d *dep.Descriptor) string {
	if !d.Build {
		return ""
	}
	return o.opts.Mode
}

// depRun tracks one dependency through the state machine.
type depRun struct {
	o     *Orchestrator
	d     *dep.Descriptor
	state State
	log   zerolog.Logger

	m     *Manifest
	prev  *Entry // manifest entry from before this run, or nil
	begun bool
}

func (r *depRun) to(s State) {
	r.log.Debug().Str("from", r.state.String()).Str("to", s.String()).Msg("transition")
	r.state = s
}

// step runs fn as the given stage, bounded by the step timeout.
func (r *depRun) step(ctx context.Context, st Stage, fn func(ctx context.Context) error) error {
	if t := r.o.opts.StepTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	r.log.Info().Str("stage", string(st)).Msg("running")
	start := time.Now()
	if err := fn(ctx); err != nil {
		return &StageError{Dep: r.d.Name, Stage: st, Err: err}
	}
	r.log.Debug().Str("stage", string(st)).Dur("took", time.Since(start)).Msg("finished")
	return nil
}

func (o *Orchestrator) process(ctx context.Context, d *dep.Descriptor, m *Manifest) Result {
	start := time.Now()
	prev, _ := m.Get(d.Name)
	r := &depRun{o: o, d: d, state: Absent, log: o.log.With().Str("dep", d.Name).Logger(), m: m, prev: prev}
	action, err := r.run(ctx)
	res := Result{Name: d.Name, Action: action, Duration: time.Since(start)}
	if err != nil {
		r.to(Failed)
		res.Action, res.State, res.Err = ActionFailed, Failed, err
		return res
	}
	r.to(Done)
	res.State = Done
	if action != ActionSkipped {
		res.Revision = r.revision(ctx)
	}
	r.log.Info().Str("action", string(action)).Msg("done")
	return res
}

func (r *depRun) revision(ctx context.Context) string {
	if t := r.o.opts.StepTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	rev, err := r.o.opts.Fetcher.Revision(ctx, r.d, r.o.opts.Layout.DepDir(r.d.Name))
	if err != nil {
		r.log.Warn().Err(err).Msg("cannot read revision")
	}
	return rev
}

// begin marks the dependency incomplete in the manifest before the first
// step that changes the tree. The mark stays until the pipeline reaches
// DONE, so a later run finishes the job instead of skipping it.
func (r *depRun) begin() {
	if r.begun {
		return
	}
	r.begun = true
	e := &Entry{Ref: r.d.Ref, Mode: r.o.modeFor(r.d), Built: r.d.Build}
	if r.prev != nil {
		last := *r.prev
		e = &last
	}
	e.Action, e.Incomplete, e.UpdatedAt = "", true, r.o.opts.Now()
	r.m.Set(r.d.Name, e)
	if err := r.m.Save(r.o.opts.Layout.ManifestPath()); err != nil {
		r.log.Warn().Err(err).Msg("cannot mark dependency incomplete in manifest")
	}
}

func (r *depRun) run(ctx context.Context) (Action, error) {
	o, d := r.o, r.d
	dir := o.opts.Layout.DepDir(d.Name)

	if _, err := os.Lstat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return ActionFailed, &StageError{Dep: d.Name, Stage: StageFetch, Err: err}
		}
		r.begin()
		if err := r.step(ctx, StageFetch, func(ctx context.Context) error {
			return o.opts.Fetcher.Fetch(ctx, d, dir)
		}); err != nil {
			return ActionFailed, err
		}
		r.to(Fetched)
		if !d.Build {
			return ActionFetched, r.stage(ctx, dir)
		}
		return ActionFetched, r.build(ctx, dir)
	}

	r.to(Present)
	refChanged, err := r.syncRef(ctx, dir)
	if err != nil {
		return ActionFailed, err
	}
	resume := !refChanged && r.prev != nil && r.prev.Incomplete
	if resume {
		r.log.Warn().Msg("previous run stopped before finishing, resuming")
	}
	switch {
	case !d.Build && refChanged:
		return ActionRefetched, r.stage(ctx, dir)
	case !d.Build && resume:
		r.begin()
		return ActionResumed, r.stage(ctx, dir)
	case !d.Build:
		r.log.Info().Msg("present, skipping")
		return ActionSkipped, nil
	case !refChanged && !resume && !o.rebuild(d.Name):
		r.log.Info().Msg("present, skipping")
		return ActionSkipped, nil
	}

	r.begin()
	buildDir := o.opts.Layout.BuildDir(d.Name)
	if err := r.step(ctx, StagePurge, func(context.Context) error {
		return os.RemoveAll(buildDir)
	}); err != nil {
		return ActionFailed, err
	}
	r.to(Purged)
	action := ActionRebuilt
	switch {
	case refChanged:
		action = ActionRefetched
	case resume:
		action = ActionResumed
	}
	return action, r.build(ctx, dir)
}

// syncRef moves a present checkout to its ref when it has drifted and
// reports whether it did. A ref dropped from the registry since the last
// run counts as drift towards the default branch.
func (r *depRun) syncRef(ctx context.Context, dir string) (bool, error) {
	d := r.d
	if d.EffectiveKind() != dep.KindGit {
		return false, nil
	}
	if d.Ref == "" {
		if r.prev == nil || r.prev.Ref == "" {
			return false, nil
		}
		r.log.Info().Str("was", r.prev.Ref).Msg("ref removed, following the default branch")
		return true, r.update(ctx, dir)
	}
	var at bool
	if err := r.step(ctx, StageUpdate, func(ctx context.Context) error {
		var err error
		at, err = r.o.opts.Fetcher.AtRef(ctx, d, dir)
		return err
	}); err != nil {
		return false, err
	}
	if at {
		return false, nil
	}
	r.log.Info().Str("ref", d.Ref).Msg("checkout is not at ref, updating")
	return true, r.update(ctx, dir)
}

func (r *depRun) update(ctx context.Context, dir string) error {
	r.begin()
	if err := r.step(ctx, StageUpdate, func(ctx context.Context) error {
		return r.o.opts.Fetcher.Update(ctx, r.d, dir)
	}); err != nil {
		return err
	}
	r.to(Refetched)
	return nil
}

func (r *depRun) build(ctx context.Context, dir string) error {
	o, d := r.o, r.d
	system := d.EffectiveBuildSystem()
	tc, ok := o.opts.Toolchains[system]
	if !ok {
		return &StageError{Dep: d.Name, Stage: StageConfigure, Err: fmt.Errorf("no toolchain for build system %q", system)}
	}

	buildDir := o.opts.Layout.BuildDir(d.Name)
	cfg := buildsys.Config{
		SourceDir: filepath.Join(dir, filepath.FromSlash(d.SourceSubdir)),
		BuildDir:  buildDir,
		Prefix:    o.opts.Layout.PrefixDir(),
		Mode:      o.opts.Mode,
		Options:   d.Options,
	}
	if err := r.step(ctx, StageConfigure, func(ctx context.Context) error {
		return tc.Configure(ctx, cfg)
	}); err != nil {
		return err
	}
	r.to(Configured)
	if err := r.step(ctx, StageBuild, func(ctx context.Context) error {
		return tc.Build(ctx, buildDir, o.opts.Mode)
	}); err != nil {
		return err
	}
	r.to(Built)
	if err := r.step(ctx, StageInstall, func(ctx context.Context) error {
		return tc.Install(ctx, buildDir, o.opts.Mode)
	}); err != nil {
		return err
	}
	r.to(Installed)
	return r.stage(ctx, dir)
}

func (r *depRun) stage(ctx context.Context, dir string) error {
	if len(r.d.PostInstall) > 0 {
		prefix := r.o.opts.Layout.PrefixDir()
		if err := r.step(ctx, StageStage, func(ctx context.Context) error {
			return r.o.opts.Stager.Stage(ctx, dir, prefix, r.d.PostInstall)
		}); err != nil {
			return err
		}
	}
	r.to(Staged)
	return nil
}
