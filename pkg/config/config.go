// Package config loads slox settings from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ProjectFileName = ".slox.yaml"
	UserDirName     = ".slox"
	UserFileName    = "config.yaml"
)

// Config holds the settings shared by the CLI and the REPL.
type Config struct {
	Prompt            string `yaml:"prompt"`
	HistoryFile       string `yaml:"historyFile"`
	LogLevel          string `yaml:"logLevel"`
	Pretty            bool   `yaml:"pretty"`
	HaltOnSyntaxError bool   `yaml:"haltOnSyntaxError"`
	Stdlib            bool   `yaml:"stdlib"`
	MaxCallDepth      int    `yaml:"maxCallDepth"`

	// Path is the file the settings came from; empty for built-in defaults.
	Path string `yaml:"-"`
}

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrInvalidLogLevel          = errors.New("logLevel must be one of debug, info, warn, error")
	ErrInvalidMaxCallDepth      = errors.New("maxCallDepth must not be negative")
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Prompt:      "> ",
		HistoryFile: ".slox_history",
		LogLevel:    "warn",
		Stdlib:      true,
	}
}

// Load resolves settings for a session started in projectDir.
// Precedence: project (.slox.yaml) → user (~/.slox/config.yaml) → defaults.
// A missing file falls through to the next source; a malformed one is an error.
func Load(projectDir string) (*Config, error) {
	projectPath := filepath.Join(projectDir, ProjectFileName)
	cfg, err := LoadFile(projectPath)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if homeDir, herr := os.UserHomeDir(); herr == nil {
		userPath := filepath.Join(homeDir, UserDirName, UserFileName)
		cfg, err = LoadFile(userPath)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return Defaults(), nil
}

// LoadFile reads one config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrConfigFileUnreadable, "%s: %v", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrConfigFileUnmarshallable, "%s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	cfg.Path = path
	return cfg, nil
}

// Validate checks field values a YAML decode cannot.
func (c *Config) Validate() error {
	if !logLevels[c.LogLevel] {
		return errors.Wrapf(ErrInvalidLogLevel, "got %q", c.LogLevel)
	}
	if c.MaxCallDepth < 0 {
		return ErrInvalidMaxCallDepth
	}
	return nil
}

// ResolveHistoryFile returns an absolute history path. Relative paths
// are taken from the user's home directory.
func (c *Config) ResolveHistoryFile() string {
	if c.HistoryFile == "" || filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return c.HistoryFile
	}
	return filepath.Join(home, c.HistoryFile)
}

// Marshal renders the effective settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	return out, nil
}
