// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goplus/depstrap/internal/config"
	"github.com/goplus/depstrap/internal/env"
	"github.com/goplus/depstrap/internal/registry"
)

var (
	configPath   string
	rootDir      string
	prefixName   string
	registryPath string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "depstrap",
	Short: "depstrap bootstraps third-party native dependencies",
	Long: `depstrap works through a declared list of third-party libraries. It fetches
each one into the dependency root, then configures, builds and installs the
ones that need building into a single shared prefix.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "run configuration file (default $DEPSTRAP_CONFIG or "+env.DefaultConfig+")")
	flags.StringVar(&rootDir, "root", "", "dependency root (default $DEPSTRAP_ROOT or "+env.DefaultRoot+")")
	flags.StringVar(&prefixName, "prefix", "", "install prefix directory name below the root (default "+env.DefaultPrefix+")")
	flags.StringVar(&registryPath, "registry", "", "registry file (.toml, .yaml, .hcl or .json); default is the built-in registry")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug events and stream build output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "depstrap:", err)
		os.Exit(1)
	}
}

// loadConfig reads the run configuration and applies the persistent flags.
// Flags override the file, which overrides the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, required := env.ConfigFile(), os.Getenv("DEPSTRAP_CONFIG") != ""
	if cmd.Flags().Changed("config") {
		path, required = configPath, true
	}
	cfg, err := config.LoadOptional(path, required)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = rootDir
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefixName
	}
	if flags.Changed("registry") {
		cfg.Registry = registryPath
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	return cfg, cfg.Validate()
}

// loadRegistry loads the registry cfg names, reserving the names layout
// owns below the root.
func loadRegistry(cfg config.Config, layout env.Layout) (*registry.Registry, error) {
	if cfg.Registry == "" {
		return registry.Default(layout.Reserved()...)
	}
	return registry.Load(cfg.Registry, layout.Reserved()...)
}

// setup resolves the configuration, layout and registry shared by every
// subcommand.
func setup(cmd *cobra.Command) (config.Config, env.Layout, *registry.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, env.Layout{}, nil, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return cfg, env.Layout{}, nil, err
	}
	reg, err := loadRegistry(cfg, layout)
	if err != nil {
		return cfg, layout, nil, err
	}
	return cfg, layout, reg, nil
}
