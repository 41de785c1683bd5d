// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `docset-builder config` command tree.
func newConfigCommand(a *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage docset-builder configuration",
		Long: `Manage docset-builder configuration.

Configuration is stored in:
  - Linux: ~/.config/docset-builder/config.cue
  - macOS: ~/Library/Application Support/docset-builder/config.cue
  - Windows: %APPDATA%\docset-builder\config.cue

Every key can also be set through the environment, for example
DOCSET_BUILDER_RUNTIME=container.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings(cmd.Context(), flags)
			if err != nil {
				return err
			}
			showConfig(a.stdout, s, configFileFor(flags))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if flags.configFile != "" {
				dir = filepath.Dir(flags.configFile)
			}
			path, created, err := config.CreateDefaultConfig(dir)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(a.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(a.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	return cfgCmd
}

// configFileFor returns the config file a run reads, or "" when it does not exist.
func configFileFor(flags *rootFlags) string {
	path := flags.configFile
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	}
	if !fileExistsCheck(path) {
		return ""
	}
	return path
}

func showConfig(w io.Writer, s settings, cfgFile string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if cfgFile != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfgFile)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	line := func(key, value string) {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(value))
	}
	line("library_dir", s.paths.LibraryDir)
	line("cache_dir", s.paths.CacheDir)
	line("overrides_file", s.paths.OverridesFile)
	line("installed_index", s.paths.InstalledIndex)
	line("runtime", s.cfg.Runtime.String())

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("container"))
	fmt.Fprintf(w, "  engine: %s\n", valueStyle.Render(s.cfg.Container.Engine.String()))
	fmt.Fprintf(w, "  image: %s\n", valueStyle.Render(s.cfg.Container.Image))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("registry"))
	fmt.Fprintf(w, "  url: %s\n", valueStyle.Render(s.cfg.Registry.URL))
	fmt.Fprintf(w, "  use_cache: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.cfg.Registry.UseCache)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.cfg.UI.Verbose)))
}
