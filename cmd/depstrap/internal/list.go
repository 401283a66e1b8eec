// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/depstrap/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the registry in pipeline order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, reg, err := setup(cmd)
		if err != nil {
			return err
		}
		return writeList(cmd.OutOrStdout(), reg)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func writeList(w io.Writer, reg *registry.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tREF\tBUILD\tURL")
	for _, d := range reg.Entries() {
		ref := d.Ref
		if ref == "" {
			ref = "-"
		}
		build := "-"
		if d.Build {
			build = string(d.EffectiveBuildSystem())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.EffectiveKind(), ref, build, d.URL)
	}
	return tw.Flush()
}
