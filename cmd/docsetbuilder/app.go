// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/docset-builder/docset-builder/internal/app"
	"github.com/docset-builder/docset-builder/internal/config"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and delegate through its service interfaces.
	App struct {
		Config    ConfigProvider
		Pipelines PipelineFactory
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Pipelines PipelineFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// InstallService runs the install pipeline.
	InstallService interface {
		Install(ctx context.Context, packages []string, opts app.InstallOptions) ([]app.Result, error)
	}

	// PipelineFactory builds the install service for a loaded configuration.
	PipelineFactory func(cfg *config.Config, paths config.Paths, opts app.WireOptions) (InstallService, error)

	// settings is the configuration of one invocation.
	settings struct {
		cfg   *config.Config
		paths config.Paths
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Pipelines == nil {
		deps.Pipelines = defaultPipelines
	}
	return &App{
		Config:    deps.Config,
		Pipelines: deps.Pipelines,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

func defaultPipelines(cfg *config.Config, paths config.Paths, opts app.WireOptions) (InstallService, error) {
	return app.NewFromConfig(cfg, paths, opts)
}

// loadSettings loads the configuration selected by the global flags and
// resolves its paths. An explicit --config file also selects its directory
// as the configuration directory.
func (a *App) loadSettings(ctx context.Context, flags *rootFlags) (settings, error) {
	opts := config.LoadOptions{ConfigFilePath: flags.configFile}
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return settings{}, err
	}
	dir := ""
	if flags.configFile != "" {
		dir = filepath.Dir(flags.configFile)
	}
	paths, err := cfg.Paths(dir)
	if err != nil {
		return settings{}, err
	}
	if cfg.UI.Verbose && !flags.verbose {
		flags.verbose = true
		setupLogging(a.stderr, true)
	}
	return settings{cfg: cfg, paths: paths}, nil
}
