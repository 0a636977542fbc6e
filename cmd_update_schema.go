// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update-schema",
		Short: "Rebuild resource schemas from the data files (retains descriptions)",
		Args:  cobra.NoArgs,
	}
	sel := addSelectionFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}
		return forEachPackage(packages, func(p *datapkg.Package) error {
			cliutil.Alert(cliutil.Blue, "Rebuilding resource schemas for %s", p.Slug())
			return p.RebuildAllResources()
		})
	}
	argparser.AddCommand(cmd)
}
