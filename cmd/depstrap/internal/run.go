// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goplus/depstrap/internal/asset"
	"github.com/goplus/depstrap/internal/config"
	"github.com/goplus/depstrap/internal/logging"
	"github.com/goplus/depstrap/internal/pipeline"
	"github.com/goplus/depstrap/internal/source"
	"github.com/goplus/depstrap/internal/stage"
	"github.com/goplus/depstrap/internal/vcs"
	"github.com/goplus/depstrap/pkgs/buildsys"
	"github.com/goplus/depstrap/pkgs/buildsys/autotools"
	"github.com/goplus/depstrap/pkgs/buildsys/cmake"
	"github.com/goplus/depstrap/pkgs/dep"
)

var (
	runMode       string
	runRebuild    bool
	runRebuildDep []string
	runKeepGoing  bool
	runTimeout    time.Duration
	runGenerator  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, build and install every dependency in registry order",
	Long: `Run works through the registry in order. A dependency whose directory is
missing is fetched and, if it needs building, configured, built and installed
into the shared prefix. A present dependency is skipped unless a rebuild is
requested for it or its pinned ref no longer matches the checkout.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runMode, "mode", "", "build mode, e.g. Debug or Release (default Debug)")
	flags.BoolVar(&runRebuild, "rebuild", false, "purge and rebuild every present dependency")
	flags.StringArrayVar(&runRebuildDep, "rebuild-dep", nil, "per-dependency rebuild policy as name[=bool]; repeatable")
	flags.BoolVar(&runKeepGoing, "keep-going", false, "continue with later dependencies after a failure")
	flags.DurationVar(&runTimeout, "timeout", 0, "bound on each fetch, configure, build or install step (0 means none)")
	flags.StringVar(&runGenerator, "generator", "", "CMake generator, e.g. Ninja")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg, layout)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Verbose)
	runner := &buildsys.ExecRunner{}
	if cfg.Verbose {
		runner.Stdout, runner.Stderr = cmd.ErrOrStderr(), cmd.ErrOrStderr()
	}
	cmakeOpts := []cmake.Option{cmake.WithRunner(runner)}
	if runGenerator != "" {
		cmakeOpts = append(cmakeOpts, cmake.WithGenerator(runGenerator))
	}

	orch := pipeline.New(reg, pipeline.Options{
		Layout:           layout,
		Mode:             cfg.Mode,
		Rebuild:          cfg.Rebuild,
		RebuildOverrides: cfg.RebuildOverrides,
		KeepGoing:        cfg.KeepGoing,
		StepTimeout:      cfg.StepTimeout,
		Fetcher:          source.NewRouter(vcs.NewGitVCS(), asset.NewClient(asset.WithLogger(logger))),
		Toolchains: map[dep.BuildSystem]buildsys.Toolchain{
			dep.CMake:     cmake.New(cmakeOpts...),
			dep.AutoTools: autotools.New(autotools.WithRunner(runner)),
		},
		Stager: stage.Copier{},
		Logger: logger,
	})

	logger.Info().Str("root", layout.Root).Str("prefix", layout.PrefixDir()).Str("mode", cfg.Mode).
		Int("deps", reg.Len()).Msg("starting")
	report, err := orch.Run(cmd.Context())
	if report != nil {
		writeReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		if report == nil || len(report.Failed()) == 0 {
			return err
		}
		return fmt.Errorf("%d dependency pipeline(s) failed", len(report.Failed()))
	}
	return nil
}

// applyRunFlags overlays the run command's flags on cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = runMode
	}
	if flags.Changed("rebuild") {
		cfg.Rebuild = runRebuild
	}
	if flags.Changed("keep-going") {
		cfg.KeepGoing = runKeepGoing
	}
	if flags.Changed("timeout") {
		cfg.StepTimeout = runTimeout
	}
	if flags.Changed("rebuild-dep") {
		overrides, err := parseRebuildDeps(runRebuildDep)
		if err != nil {
			return err
		}
		if cfg.RebuildOverrides == nil {
			cfg.RebuildOverrides = make(map[string]bool, len(overrides))
		}
		for name, v := range overrides {
			cfg.RebuildOverrides[name] = v
		}
	}
	return cfg.Validate()
}

// parseRebuildDeps parses --rebuild-dep values of the form name[=bool].
func parseRebuildDeps(values []string) (map[string]bool, error) {
	overrides := make(map[string]bool, len(values))
	for _, v := range values {
		name, raw, hasValue := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("--rebuild-dep %q: missing dependency name", v)
		}
		rebuild := true
		if hasValue {
			b, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("--rebuild-dep %q: %w", v, err)
			}
			rebuild = b
		}
		overrides[name] = rebuild
	}
	return overrides, nil
}

func writeReport(w io.Writer, report *pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Name, res.Action, res.Duration.Round(time.Millisecond))
	}
	for _, name := range report.Pending {
		fmt.Fprintf(tw, "%s\tnot run\t\n", name)
	}
	tw.Flush()

	for _, res := range report.Failed() {
		var se *pipeline.StageError
		if errors.As(res.Err, &se) {
			fmt.Fprintf(w, "FAILED %s at %s: %v\n", se.Dep, se.Stage, se.Err)
			continue
		}
		fmt.Fprintf(w, "FAILED %s: %v\n", res.Name, res.Err)
	}
}
