// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docset-builder/docset-builder/internal/logging"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose    bool
	configFile string
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand creates the command tree bound to a.
func NewRootCommand(a *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "docset-builder",
		Short: "Build documentation docsets for Python packages",
		Long: TitleStyle.Render("docset-builder") + SubtitleStyle.Render(" - Build documentation docsets for Python packages") + `

docset-builder looks a package up on the package index, clones its source
repository, works out how the project builds its Sphinx documentation,
builds it in a virtual environment or a container and installs the result
as a docset for Zeal or Dash.

` + SubtitleStyle.Render("Examples:") + `
  docset-builder install attrs requests    Build and install two docsets
  docset-builder install -b attrs          Build without installing
  docset-builder inspect attrs ./attrs     Show what would be built
  docset-builder config show               Show current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(a.stderr, flags.verbose)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/docset-builder/config.cue)")

	rootCmd.AddCommand(newInstallCommand(a, flags))
	rootCmd.AddCommand(newInspectCommand(a, flags))
	rootCmd.AddCommand(newConfigCommand(a, flags))

	return rootCmd
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	a := NewApp(Dependencies{})
	rootCmd := NewRootCommand(a)
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, verboseFlag(rootCmd))
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(w io.Writer, verbose bool) {
	logging.Setup(w, logging.Options{Verbose: verbose})
}

func verboseFlag(cmd *cobra.Command) bool {
	v, err := cmd.PersistentFlags().GetBool("verbose")
	return err == nil && v
}
