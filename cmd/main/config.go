package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"
	"github.com/rotisserie/eris"

	"github.com/CTAG07/Nepenthes/pkg/build"
	"github.com/CTAG07/Nepenthes/pkg/templating"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "./nepenthes.json"

// ErrConfigExists is returned by WriteDefaultConfig when it would replace a config file.
var ErrConfigExists = errors.New("config file already exists")

// AppConfig holds the settings of the command itself.
type AppConfig struct {
	LogLevel        string `json:"log_level"`
	ManifestEnabled bool   `json:"manifest_enabled"`
	ManifestPath    string `json:"manifest_path"`
}

// ServeConfig holds the settings of the preview server.
type ServeConfig struct {
	Addr string `json:"addr"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	App       *AppConfig                 `json:"app_config"`
	Build     *build.Config              `json:"build_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
	Serve     *ServeConfig               `json:"serve_config"`
}

// DefaultAppConfig creates an app configuration with default values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:        "info",
		ManifestEnabled: true,
		ManifestPath:    "./.nepenthes/manifest.db",
	}
}

// DefaultServeConfig creates a serve configuration with default values.
func DefaultServeConfig() *ServeConfig {
	return &ServeConfig{
		Addr: "127.0.0.1:8000",
	}
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	tmpl := templating.DefaultConfig()
	return &Config{
		App:       DefaultAppConfig(),
		Build:     build.DefaultConfig(),
		Templates: &tmpl,
		Serve:     DefaultServeConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// Keys present in the file override the defaults; a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, eris.Wrapf(err, "failed to read config file %s", path)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, eris.Wrapf(err, "failed to parse config file %s", path)
	}

	// A section set to null in the file falls back to its defaults.
	defaults := DefaultConfig()
	if config.App == nil {
		config.App = defaults.App
	}
	if config.Build == nil {
		config.Build = defaults.Build
	}
	if config.Templates == nil {
		config.Templates = defaults.Templates
	}
	if config.Serve == nil {
		config.Serve = defaults.Serve
	}
	return config, nil
}

// WriteDefaultConfig writes the default configuration to path. An existing
// file is only replaced when force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return eris.Wrapf(ErrConfigExists, "%s", path)
		}
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return eris.Wrap(err, "failed to marshal default config")
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return eris.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}
