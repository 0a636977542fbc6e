// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/datapkg"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate datasets against their schemas",
		Args:  cobra.NoArgs,
	}
	sel := addSelectionFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}
		return forEachPackage(packages, func(p *datapkg.Package) error {
			cliutil.Alert(cliutil.Blue, "Validating: %s", p.Slug())
			findings, err := p.Validate(cmd.Context())
			if err != nil {
				return err
			}
			for _, finding := range findings {
				if finding.Severity != datapkg.SeverityOK {
					cliutil.Alert(finding.Color(), "%s", finding.Message)
				}
			}
			if datapkg.HasErrors(findings) {
				return fmt.Errorf("package %s has validation errors", p.Slug())
			}
			cliutil.Alert(cliutil.Green, "No errors for package")
			return nil
		})
	}
	argparser.AddCommand(cmd)
}
