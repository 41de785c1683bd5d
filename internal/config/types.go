// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	// RuntimeVirtual builds documentation in a Python virtual environment
	// driven by the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"
	// RuntimeContainer builds documentation inside a throwaway container.
	RuntimeContainer RuntimeMode = "container"

	// DefaultContainerImage is the image used by the container runtime.
	DefaultContainerImage = "python:3.12-slim"
	// DefaultRegistryURL is the base URL of the package index JSON API.
	DefaultRegistryURL = "https://pypi.org"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidRuntimeMode is returned when a RuntimeMode value is not recognized.
	ErrInvalidRuntimeMode = errors.New("invalid runtime mode")
	// ErrInvalidDirPath is returned when a DirPath value is whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidRegistryURL is returned when the registry URL is not an absolute http(s) URL.
	ErrInvalidRegistryURL = errors.New("invalid registry url")
	// ErrInvalidContainerConfig is the sentinel error wrapped by InvalidContainerConfigError.
	ErrInvalidContainerConfig = errors.New("invalid container config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// RuntimeMode selects where documentation builds run.
	RuntimeMode string

	// InvalidRuntimeModeError is returned when a RuntimeMode value is not recognized.
	// It wraps ErrInvalidRuntimeMode for errors.Is() compatibility.
	InvalidRuntimeModeError struct {
		Value RuntimeMode
	}

	// DirPath is a filesystem directory setting. The zero value means
	// "use the default location"; non-zero values must not be whitespace-only.
	DirPath string

	// InvalidDirPathError is returned when a DirPath value is whitespace-only.
	InvalidDirPathError struct {
		Field string
		Value DirPath
	}

	// InvalidRegistryURLError is returned when the registry URL cannot be used.
	InvalidRegistryURLError struct {
		Value string
	}

	// InvalidContainerConfigError collects field errors of ContainerConfig.
	InvalidContainerConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// LibraryDir is the documentation viewer's docsets directory.
		LibraryDir DirPath `json:"library_dir" mapstructure:"library_dir"`
		// CacheDir holds package metadata, repositories, venvs and icons.
		CacheDir DirPath `json:"cache_dir" mapstructure:"cache_dir"`
		// Runtime selects the build environment.
		Runtime RuntimeMode `json:"runtime" mapstructure:"runtime"`
		// Container configures the container runtime.
		Container ContainerConfig `json:"container" mapstructure:"container"`
		// Registry configures the package index client.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// OverridesFile points at a user overrides.cue. Empty means the
		// overrides.cue next to the config file.
		OverridesFile string `json:"overrides_file" mapstructure:"overrides_file"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ContainerConfig configures the container runtime.
	ContainerConfig struct {
		Engine ContainerEngine `json:"engine" mapstructure:"engine"`
		Image  string          `json:"image" mapstructure:"image"`
	}

	// RegistryConfig configures package metadata lookups.
	RegistryConfig struct {
		URL string `json:"url" mapstructure:"url"`
		// UseCache reads previously fetched metadata from the cache
		// directory instead of querying the index again.
		UseCache bool `json:"use_cache" mapstructure:"use_cache"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and full error chains
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidContainerEngineError.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error {
	return ErrInvalidContainerEngine
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is one of the defined engine types,
// and a list of validation errors if it is not.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// Error implements the error interface for InvalidRuntimeModeError.
func (e *InvalidRuntimeModeError) Error() string {
	return fmt.Sprintf("invalid runtime mode %q (valid: virtual, container)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRuntimeModeError) Unwrap() error {
	return ErrInvalidRuntimeMode
}

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid returns whether the RuntimeMode is one of the defined runtime modes,
// and a list of validation errors if it is not.
func (m RuntimeMode) IsValid() (bool, []error) {
	switch m {
	case RuntimeVirtual, RuntimeContainer:
		return true, nil
	default:
		return false, []error{&InvalidRuntimeModeError{Value: m}}
	}
}

// String returns the string representation of the DirPath.
func (p DirPath) String() string { return string(p) }

// IsValid reports whether the path is empty or has non-space content.
func (p DirPath) IsValid() (bool, []error) {
	if p == "" || strings.TrimSpace(string(p)) != "" {
		return true, nil
	}
	return false, []error{&InvalidDirPathError{Value: p}}
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s %q: non-empty value must not be whitespace-only", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid directory path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

// Error implements the error interface for InvalidRegistryURLError.
func (e *InvalidRegistryURLError) Error() string {
	return fmt.Sprintf("invalid registry url %q: must be an absolute http(s) URL", e.Value)
}

// Unwrap returns ErrInvalidRegistryURL for errors.Is() compatibility.
func (e *InvalidRegistryURLError) Unwrap() error { return ErrInvalidRegistryURL }

// IsValid checks the registry URL.
func (c RegistryConfig) IsValid() (bool, []error) {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false, []error{&InvalidRegistryURLError{Value: c.URL}}
	}
	return true, nil
}

// IsValid returns whether the ContainerConfig has valid fields.
func (c ContainerConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Engine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Image) == "" {
		errs = append(errs, fmt.Errorf("container image must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidContainerConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidContainerConfigError.
func (e *InvalidContainerConfigError) Error() string {
	return fmt.Sprintf("invalid container config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidContainerConfig for errors.Is() compatibility.
func (e *InvalidContainerConfigError) Unwrap() error { return ErrInvalidContainerConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to each sub-component and collects every field error.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, _ := c.LibraryDir.IsValid(); !valid {
		errs = append(errs, &InvalidDirPathError{Field: "library_dir", Value: c.LibraryDir})
	}
	if valid, _ := c.CacheDir.IsValid(); !valid {
		errs = append(errs, &InvalidDirPathError{Field: "cache_dir", Value: c.CacheDir})
	}
	if valid, fieldErrs := c.Runtime.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Container.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Registry.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration. Directory settings are
// left empty and resolved by LibraryPath and CachePath.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeVirtual,
		Container: ContainerConfig{
			Engine: ContainerEnginePodman,
			Image:  DefaultContainerImage,
		},
		Registry: RegistryConfig{
			URL:      DefaultRegistryURL,
			UseCache: true,
		},
	}
}
