// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/datapkg/datapkg/pkg/settings"
)

// Discover finds every package under the configured dataset directory,
// ordered by declared listing position and then by slug.
func Discover(cfg settings.Settings) ([]*Package, error) {
	manifests, err := filepath.Glob(filepath.Join(cfg.DatasetDir, "*", ManifestName))
	if err != nil {
		return nil, err
	}
	packages := make([]*Package, 0, len(manifests))
	for _, manifest := range manifests {
		p, err := Open(filepath.Dir(manifest), cfg)
		if err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	sort.Slice(packages, func(i, j int) bool {
		oi, oj := packages[i].DatasetOrder(), packages[j].DatasetOrder()
		if oi != oj {
			return oi < oj
		}
		return packages[i].Slug() < packages[j].Slug()
	})
	return packages, nil
}

// Selection is how CLI commands name the packages to operate on: an
// explicit slug, every package, or the package containing the working
// directory.
type Selection struct {
	Slug string
	All  bool
}

// Resolve returns the selected packages.  With neither a slug nor --all,
// the working directory must be inside a package.
func (sel Selection) Resolve(cfg settings.Settings) ([]*Package, error) {
	switch {
	case sel.All:
		packages, err := Discover(cfg)
		if err != nil {
			return nil, err
		}
		if len(packages) == 0 {
			return nil, fmt.Errorf("no packages found under %s", cfg.DatasetDir)
		}
		return packages, nil
	case sel.Slug != "":
		p, err := Open(filepath.Join(cfg.DatasetDir, sel.Slug), cfg)
		if err != nil {
			return nil, err
		}
		return []*Package{p}, nil
	default:
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		p, err := findEnclosingPackage(cwd, cfg)
		if err != nil {
			return nil, fmt.Errorf("not inside a package directory; use --slug or --all")
		}
		return []*Package{p}, nil
	}
}

// findEnclosingPackage walks from dir upward until it finds a manifest.
func findEnclosingPackage(dir string, cfg settings.Settings) (*Package, error) {
	for {
		if p, err := Open(dir, cfg); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotAPackage
		}
		dir = parent
	}
}
