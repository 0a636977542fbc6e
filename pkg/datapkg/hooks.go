// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dexec"

	"github.com/datapkg/datapkg/pkg/cliutil"
)

// BuildHook regenerates a package's source data files.
type BuildHook func(ctx context.Context, p *Package) error

var buildHooks = make(map[string]BuildHook)

// RegisterBuildHook installs a named build capability that packages can
// reference from custom.build.  Call at startup; not safe for concurrent
// use with RunBuildCommand.
func RegisterBuildHook(name string, hook BuildHook) {
	buildHooks[name] = hook
}

// RunBuildCommand regenerates the package's data files from its
// custom.build setting: either the name of a registered build hook, or a
// shell command run from the package directory.  A non-zero exit is
// fatal.
func (p *Package) RunBuildCommand(ctx context.Context) error {
	doc, err := p.Manifest()
	if err != nil {
		return err
	}
	command := doc.Custom.Build
	if command == "" {
		cliutil.Alert(cliutil.Red, "No build command specified in custom.build for %s", p.Slug())
		return nil
	}
	if hook, ok := buildHooks[command]; ok {
		cliutil.Alert(cliutil.Blue, "Running build hook for %s", p.Slug())
		return hook(ctx, p)
	}
	cliutil.Alert(cliutil.Blue, "Running build command for %s", p.Slug())
	cmd := dexec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = p.Dir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build command for %s failed: %w", p.Slug(), err)
	}
	return nil
}
