// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			packages, err := datapkg.Discover(cfg)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "PACKAGE\tVERSION\tRESOURCES\tERRORS")
			for _, p := range packages {
				version, err := p.CurrentVersion()
				if err != nil {
					version = "invalid"
				}
				resources, err := p.Resources()
				if err != nil {
					return err
				}
				findings, err := p.Validate(cmd.Context())
				if err != nil {
					return err
				}
				errorCount := 0
				for _, finding := range findings {
					if finding.Severity == datapkg.SeverityError {
						errorCount++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", p.Slug(), version, len(resources), errorCount)
			}
			return w.Flush()
		},
	}
	argparser.AddCommand(cmd)
}
