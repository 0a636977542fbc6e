// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Run the full publication pipeline for the selected packages",
		Long: "Rebuilds each package's resource schemas, builds its artifact tree,\n" +
			"backfills any unbuilt historical versions, and regenerates the static\n" +
			"site sources.",
		Args: cobra.NoArgs,
	}
	sel := addSelectionFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}
		return forEachPackage(packages, func(p *datapkg.Package) error {
			return p.Publish(cmd.Context())
		})
	}
	argparser.AddCommand(cmd)
}
