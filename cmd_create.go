// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/frictionless"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create SLUG",
		Short: "Create a new dataset directory with a template manifest",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			slug := args[0]
			dir := filepath.Join(cfg.DatasetDir, slug)
			if _, err := os.Stat(dir); err == nil {
				return fmt.Errorf("dataset directory %s already exists", dir)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			manifest := frictionless.Package{
				Name:        slug,
				Title:       "",
				Description: "",
				Version:     "0.1.0",
			}
			body, err := yaml.Marshal(&manifest)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, "datapackage.yaml")
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			cliutil.Alert(cliutil.Green, "New dataset template created in: %s", dir)
			return nil
		},
	}
	argparser.AddCommand(cmd)
}
