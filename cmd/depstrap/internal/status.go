// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goplus/depstrap/internal/env"
	"github.com/goplus/depstrap/internal/pipeline"
	"github.com/goplus/depstrap/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which dependencies are present and how they were last installed",
	Long: `Status reports, for each registry entry, whether its directory exists below
the dependency root (the only thing a run checks) together with what the
manifest recorded when the entry was last fetched or built. An entry whose
last run stopped midway shows as incomplete; the next run finishes it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, layout, reg, err := setup(cmd)
		if err != nil {
			return err
		}
		manifest, err := pipeline.LoadManifest(layout.ManifestPath())
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
		return writeStatus(cmd.OutOrStdout(), reg, layout, manifest)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func writeStatus(w io.Writer, reg *registry.Registry, layout env.Layout, manifest *pipeline.Manifest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tREF\tREVISION\tMODE\tUPDATED")
	for _, d := range reg.Entries() {
		state := "absent"
		if _, err := os.Lstat(layout.DepDir(d.Name)); err == nil {
			state = "present"
		}
		ref, rev, mode, updated := "-", "-", "-", "-"
		if e, ok := manifest.Get(d.Name); ok {
			if e.Ref != "" {
				ref = e.Ref
			}
			if e.Revision != "" {
				rev = shortRev(e.Revision)
			}
			if e.Mode != "" {
				mode = e.Mode
			}
			updated = e.UpdatedAt.Local().Format(time.DateTime)
			switch {
			case state != "present":
			case e.Incomplete:
				state = "present, incomplete"
			case e.Ref != d.Ref:
				state = "present, ref changed"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Name, state, ref, rev, mode, updated)
	}
	return tw.Flush()
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
