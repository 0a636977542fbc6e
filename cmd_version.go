// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datapkg/datapkg/pkg/datapkg"
	"github.com/datapkg/datapkg/pkg/semver"
)

func init() {
	var (
		flagMessage    string
		flagDryRun     bool
		flagPublish    bool
		flagAutoBan    []string
		flagPrerelease string
	)
	cmd := &cobra.Command{
		Use:   "version [RULE|SEMVER]",
		Short: "Show or bump package versions",
		Long: "With no argument, prints the current version of each selected package.\n" +
			"With a bump rule (MAJOR, MINOR, PATCH, INITIAL, AUTO, STATIC) or an explicit\n" +
			"semantic version, advances the version: the package is validated, the change\n" +
			"log updated, and the working tree snapshotted under versions/.",
		Args: cobra.MaximumNArgs(1),
	}
	sel := addSelectionFlags(cmd)
	cmd.Flags().StringVarP(&flagMessage, "message", "m", "",
		"Change-log message for the new version (AUTO fills one in from the detected change)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false,
		"Report what would happen without writing anything")
	cmd.Flags().BoolVar(&flagPublish, "publish", false,
		"Run the full build pipeline after the bump")
	cmd.Flags().StringSliceVar(&flagAutoBan, "auto-ban", nil,
		"Rules that abort an AUTO bump instead of applying (e.g. MAJOR)")
	cmd.Flags().StringVar(&flagPrerelease, "prerelease", "",
		"Append a pre-release tag to the new version")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		packages, _, err := sel.resolve()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return forEachPackage(packages, func(p *datapkg.Package) error {
				version, err := p.CurrentVersion()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.Slug(), version)
				return nil
			})
		}

		var autoBan []datapkg.Rule
		for _, name := range flagAutoBan {
			rule, ok := datapkg.ParseRule(name)
			if !ok {
				return fmt.Errorf("--auto-ban: %s is not a valid bump rule", name)
			}
			autoBan = append(autoBan, rule)
		}
		opts := datapkg.BumpOptions{
			DryRun:     flagDryRun,
			Publish:    flagPublish,
			AutoBan:    autoBan,
			Prerelease: flagPrerelease,
		}

		target := args[0]
		return forEachPackage(packages, func(p *datapkg.Package) error {
			if rule, ok := datapkg.ParseRule(target); ok {
				return p.BumpOnRule(cmd.Context(), rule, flagMessage, opts)
			}
			if semver.IsValid(target) {
				if flagMessage == "" {
					return fmt.Errorf("an explicit version needs a --message")
				}
				return p.BumpTo(cmd.Context(), target, flagMessage, opts)
			}
			return fmt.Errorf("%s is neither a bump rule (%s) nor a semantic version",
				target, strings.Join([]string{"MAJOR", "MINOR", "PATCH", "INITIAL", "AUTO", "STATIC"}, ", "))
		})
	}
	argparser.AddCommand(cmd)
}
