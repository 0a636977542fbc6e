// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	var flagRegenerate bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the versioned artifact tree for publication",
		Args:  cobra.NoArgs,
	}
	sel := addSelectionFlags(cmd)
	cmd.Flags().BoolVar(&flagRegenerate, "regenerate", false,
		"Run the package's custom.build command first to regenerate its source data")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}
		return forEachPackage(packages, func(p *datapkg.Package) error {
			if flagRegenerate {
				if err := p.RunBuildCommand(cmd.Context()); err != nil {
					return err
				}
			}
			if err := p.BuildPackage(cmd.Context()); err != nil {
				return err
			}
			return p.BuildMissingPreviousVersions(cmd.Context())
		})
	}
	argparser.AddCommand(cmd)
}
