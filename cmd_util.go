// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/datapkg"
	"github.com/datapkg/datapkg/pkg/settings"
)

// selectionFlags holds the package-selection flags shared by most
// subcommands: an explicit --slug, --all, or (neither) the package
// containing the working directory.
type selectionFlags struct {
	slug string
	all  bool
}

func addSelectionFlags(cmd *cobra.Command) *selectionFlags {
	var sel selectionFlags
	cmd.Flags().StringVar(&sel.slug, "slug", "",
		"Slug of the dataset (name of its directory)")
	cmd.Flags().BoolVar(&sel.all, "all", false,
		"Run for all datasets")
	return &sel
}

func loadSettings() (settings.Settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return settings.Settings{}, err
	}
	return settings.Load(cwd)
}

func (sel *selectionFlags) resolve() ([]*datapkg.Package, settings.Settings, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, settings.Settings{}, err
	}
	packages, err := datapkg.Selection{Slug: sel.slug, All: sel.all}.Resolve(cfg)
	return packages, cfg, err
}

// forEachPackage runs fn for every selected package with per-package
// failure isolation: one package failing doesn't stop the rest of the
// batch, but any failure makes the whole command fail.
func forEachPackage(packages []*datapkg.Package, fn func(*datapkg.Package) error) error {
	var failed []error
	for _, p := range packages {
		if err := fn(p); err != nil {
			cliutil.Alert(cliutil.Red, "%s: %v", p.Slug(), err)
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}
