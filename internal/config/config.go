// Package config loads atm settings from a YAML file, a .env file in the
// working directory and ATM_* environment variables, in that order of
// increasing precedence. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Environment variables read by Load
const (
	EnvLogLevel        = "ATM_LOG_LEVEL"
	EnvLogFile         = "ATM_LOG_FILE"
	EnvBackend         = "ATM_BACKEND"
	EnvGlobalDirectory = "ATM_USE_GLOBAL_DIRECTORY"
)

// Config is the full application configuration
type Config struct {
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Storage selects where and how collections are persisted
type Storage struct {
	// UseGlobalDirectory stores everything under the user's home directory
	// instead of the project working directory.
	UseGlobalDirectory bool   `yaml:"use_global_directory"`
	Backend            string `yaml:"backend"`
}

// Log configures the logrus logger
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: Storage{
			Backend: BackendFile,
		},
		Log: Log{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Path returns the location of the user config file
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "atm", "config.yaml")
}

// Load builds the configuration for a working directory
func Load(workDir string) (*Config, error) {
	cfg := Default()

	if path := Path(); path != "" {
		if err := LoadFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if workDir != "" {
		values, err := godotenv.Read(filepath.Join(workDir, ".env"))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
		if values != nil {
			dotenv = values
		}
	}

	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file into cfg
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		c.Log.File = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvGlobalDirectory); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvGlobalDirectory, err)
		}
		c.Storage.UseGlobalDirectory = b
	}
	return nil
}

// Validate checks that enumerated settings hold known values
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ResolveWorkingDirectory returns the directory whose config subdirectory holds the data.
// In global mode that is the user's home directory; otherwise dir itself, which must be absolute.
func ResolveWorkingDirectory(dir string, cfg *Config) (string, error) {
	if cfg != nil && cfg.Storage.UseGlobalDirectory {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home directory: %w", err)
		}
		return home, nil
	}
	if dir == "" {
		return "", errors.New("config: working directory is required")
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("config: working directory %q must be an absolute path", dir)
	}
	return filepath.Clean(dir), nil
}

// WorkingDirectoryDescription explains how the working directory is used under cfg
func WorkingDirectoryDescription(cfg *Config) string {
	if cfg != nil && cfg.Storage.UseGlobalDirectory {
		return "Working directory (ignored: global mode stores data under the home directory)"
	}
	return "Absolute path of the project directory; data lives in its .agentic-tools-mcp subdirectory"
}
