// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/docset-builder/docset-builder/internal/issue"
	"github.com/docset-builder/docset-builder/pkg/cueutil"
	"github.com/docset-builder/docset-builder/pkg/overrides"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "docset-builder"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variables overriding config keys,
	// e.g. DOCSET_BUILDER_CONTAINER_ENGINE.
	EnvPrefix = "DOCSET_BUILDER"
	// InstalledIndexFileName records the installed docsets and their versions.
	InstalledIndexFileName = "installed_docsets.json"
)

//go:embed config_schema.cue
var configSchema []byte

// Paths are the resolved directories and files used by a run.
type Paths struct {
	ConfigDir      string
	LibraryDir     string
	CacheDir       string
	OverridesFile  string
	InstalledIndex string
}

// ConfigDir returns the docset-builder configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataHome returns the per-user data directory: %LOCALAPPDATA% on Windows,
// ~/Library/Application Support on macOS and $XDG_DATA_HOME (defaulting to
// ~/.local/share) elsewhere.
func DataHome() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// Paths resolves the configured directories. Empty settings fall back to
// the Zeal docsets directory and the docset-builder data directory under
// DataHome. configDir "" means ConfigDir().
func (c *Config) Paths(configDir string) (Paths, error) {
	dir, err := configDirWithOverride(configDir)
	if err != nil {
		return Paths{}, err
	}
	p := Paths{
		ConfigDir:      dir,
		LibraryDir:     expandHome(string(c.LibraryDir)),
		CacheDir:       expandHome(string(c.CacheDir)),
		OverridesFile:  expandHome(c.OverridesFile),
		InstalledIndex: filepath.Join(dir, InstalledIndexFileName),
	}
	if p.LibraryDir == "" || p.CacheDir == "" {
		data, err := DataHome()
		if err != nil {
			return Paths{}, err
		}
		if p.LibraryDir == "" {
			p.LibraryDir = filepath.Join(data, "Zeal", "Zeal", "docsets")
		}
		if p.CacheDir == "" {
			p.CacheDir = filepath.Join(data, AppName)
		}
	}
	if p.OverridesFile == "" {
		p.OverridesFile = filepath.Join(dir, overrides.FileName)
	}
	return p, nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("library_dir", defaults.LibraryDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("runtime", defaults.Runtime)
	v.SetDefault("container.engine", defaults.Container.Engine)
	v.SetDefault("container.image", defaults.Container.Image)
	v.SetDefault("registry.url", defaults.Registry.URL)
	v.SetDefault("registry.use_cache", defaults.Registry.UseCache)
	v.SetDefault("overrides_file", defaults.OverridesFile)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	// A config file given with --config is used exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'docset-builder config init' to write a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", loadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", loadError(cuePath, err)
			}
			resolvedPath = cuePath
		}
		// If no config file found, use defaults (no error)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the CUE schema, so validate the result.
	if valid, errs := cfg.IsValid(); !valid {
		ctxErr := issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId)
		var ice *InvalidConfigError
		if errors.As(errs[0], &ice) {
			for _, fe := range ice.FieldErrors {
				ctxErr.WithSuggestion(fe.Error())
			}
		}
		return nil, "", ctxErr.Wrap(errs[0]).BuildError()
	}

	return &cfg, resolvedPath, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'docset-builder config --help' for configuration options").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Fields are optional, so values need not
// be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir ("" means
// ConfigDir()) unless one exists. It returns the file path and whether it
// was written.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration.
// Empty directory settings are written as comments showing the default.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// docset-builder configuration file\n\n")

	if cfg.LibraryDir != "" {
		fmt.Fprintf(&sb, "library_dir: %q\n", cfg.LibraryDir)
	} else {
		sb.WriteString("// library_dir: \"~/.local/share/Zeal/Zeal/docsets\"\n")
	}
	if cfg.CacheDir != "" {
		fmt.Fprintf(&sb, "cache_dir: %q\n", cfg.CacheDir)
	} else {
		sb.WriteString("// cache_dir: \"~/.local/share/docset-builder\"\n")
	}
	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)
	if cfg.OverridesFile != "" {
		fmt.Fprintf(&sb, "overrides_file: %q\n", cfg.OverridesFile)
	}

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tengine: %q\n", cfg.Container.Engine)
	fmt.Fprintf(&sb, "\timage:  %q\n", cfg.Container.Image)
	sb.WriteString("}\n")

	sb.WriteString("\nregistry: {\n")
	fmt.Fprintf(&sb, "\turl:       %q\n", cfg.Registry.URL)
	fmt.Fprintf(&sb, "\tuse_cache: %v\n", cfg.Registry.UseCache)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
