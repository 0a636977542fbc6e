// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	cmd := &cobra.Command{
		Use:   "detail",
		Short: "View status details for individual resources in a package",
		Args:  cobra.NoArgs,
	}
	sel := addSelectionFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}
		return forEachPackage(packages, func(p *datapkg.Package) error {
			version, err := p.CurrentVersion()
			if err != nil {
				return err
			}
			cliutil.Alert(cliutil.Blue, "%s %s", p.Slug(), version)
			findings, err := p.Validate(cmd.Context())
			if err != nil {
				return err
			}
			for _, finding := range findings {
				cliutil.Alert(finding.Color(), "  %s", finding.Message)
			}
			return nil
		})
	}
	argparser.AddCommand(cmd)
}
