// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/docset-builder/docset-builder/internal/app"

	"github.com/spf13/cobra"
)

// packageNameRe is the PEP 508 project name grammar. Names also become
// directory names under the cache, so nothing else is accepted.
var packageNameRe = regexp.MustCompile(`^(?i:[a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)

type installFlags struct {
	buildOnly bool
	noCache   bool
}

func newInstallCommand(a *App, flags *rootFlags) *cobra.Command {
	var f installFlags
	cmd := &cobra.Command{
		Use:   "install <package>...",
		Short: "Build and install docsets for packages",
		Long: `Build the documentation of each package and install it as a docset.

Packages are processed in order. A package that fails is reported and the
remaining packages are still processed; the command fails if any did.`,
		Args: cobra.MatchAll(cobra.MinimumNArgs(1), validatePackageNames),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), a, flags, dedupe(args), f)
		},
	}
	cmd.Flags().BoolVarP(&f.buildOnly, "build-only", "b", false, "build docsets without installing them")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "ignore cached package metadata")
	return cmd
}

func runInstall(ctx context.Context, a *App, flags *rootFlags, packages []string, f installFlags) error {
	s, err := a.loadSettings(ctx, flags)
	if err != nil {
		return err
	}

	wire := app.WireOptions{NoCache: f.noCache}
	if flags.verbose {
		wire.Stdout = a.stderr
		wire.Stderr = a.stderr
	}
	pipeline, err := a.Pipelines(s.cfg, s.paths, wire)
	if err != nil {
		return err
	}

	results, err := pipeline.Install(ctx, packages, app.InstallOptions{BuildOnly: f.buildOnly})
	for _, r := range results {
		verb := "Installed"
		if !r.Installed {
			verb = "Built"
		}
		fmt.Fprintf(a.stdout, "%s %s %s %s %s\n",
			SuccessStyle.Render("✓"), verb, CmdStyle.Render(r.Package), SubtitleStyle.Render(r.Version), r.Docset)
	}
	return err
}

func validatePackageNames(_ *cobra.Command, args []string) error {
	for _, name := range args {
		if !packageNameRe.MatchString(name) {
			return fmt.Errorf("invalid package name %q", name)
		}
	}
	return nil
}

// dedupe drops repeated package names, keeping the first occurrence.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
