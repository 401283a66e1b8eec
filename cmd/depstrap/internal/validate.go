// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/depstrap/internal/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry without touching the dependency root",
	Long: `Validate loads the registry and reports every problem found: empty,
duplicate or reserved names, empty URLs, unknown kinds or build systems and
post-install paths that leave their directory.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg, layout)
	if err != nil {
		problems := registryProblems(err)
		for _, p := range problems {
			fmt.Fprintln(cmd.ErrOrStderr(), p)
		}
		return fmt.Errorf("registry has %d problem(s)", len(problems))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registry OK: %d dependencies\n", reg.Len())
	return nil
}

// registryProblems lists one line per invalid registry entry, or the whole
// error when it is not a set of entry problems.
func registryProblems(err error) []string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		errs := multi.Unwrap()
		var lines []string
		for _, e := range errs {
			var re *registry.Error
			if errors.As(e, &re) {
				lines = append(lines, re.Error())
			}
		}
		if len(lines) == len(errs) {
			return lines
		}
	}
	return []string{err.Error()}
}
