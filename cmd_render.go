// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/jekyll"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Regenerate the static-site sources from the built packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			return jekyll.Render(cfg)
		},
	}
	argparser.AddCommand(cmd)
}
