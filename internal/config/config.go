// Package config resolves umu-setup settings from defaults, an optional TOML file, and the environment.
//
// Precedence, lowest first: defaults, $XDG_CONFIG_HOME/umu/setup.toml, environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/umu-launcher/umu-setup/internal/fetch"
	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// Environment variables read by Load.
const (
	EnvRoot    = "UMU_ROOT"
	EnvLocal   = "UMU_LOCAL"
	EnvBaseURL = "UMU_RUNTIME_BASE_URL"
)

// Defaults.
const (
	DefaultRoot  = "/usr/share/umu"
	DefaultLocal = "~/.local/share/umu"

	appDir   = "umu"
	fileName = "setup.toml"
)

// Config is the resolved configuration for one run.
type Config struct {
	// Root holds the reference manifest shipped with the package.
	Root string
	// Local is the per-user install directory.
	Local            string
	Zenity           bool
	LogLevel         zerolog.Level
	BaseURL          string
	Codename         string
	MaxDownloadBytes int64
	// Workers bounds parallel relocation; zero means one per CPU.
	Workers int
	// File is the config file that was read, empty when none exists.
	File string
}

// fileConfig mirrors setup.toml. Pointers distinguish unset keys from zero values.
type fileConfig struct {
	Root             *string `toml:"root"`
	Local            *string `toml:"local"`
	Zenity           *bool   `toml:"zenity"`
	LogLevel         *string `toml:"log_level"`
	BaseURL          *string `toml:"base_url"`
	Codename         *string `toml:"codename"`
	MaxDownloadBytes *int64  `toml:"max_download_bytes"`
	Workers          *int    `toml:"workers"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Root:             DefaultRoot,
		Local:            DefaultLocal,
		LogLevel:         zerolog.WarnLevel,
		MaxDownloadBytes: fetch.DefaultMaxBytes,
	}
}

// FilePath returns the location of the optional config file.
func FilePath(sys System) (string, error) {
	dir, err := sys.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf(messages.ConfigResolveConfigDirFmt, err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load resolves the configuration. A missing config file is not an error.
func Load(sys System) (Config, error) {
	cfg := Default()

	path, err := FilePath(sys)
	if err != nil {
		return Config{}, err
	}
	data, err := sys.ReadFile(path)
	switch {
	case err == nil:
		fc, err := parseFile(data, path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.applyFile(fc); err != nil {
			return Config{}, fmt.Errorf(messages.ConfigInvalidFileFmt, path, err)
		}
		cfg.File = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf(messages.ConfigReadFileFmt, path, err)
	}

	if err := cfg.applyEnv(sys); err != nil {
		return Config{}, err
	}
	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Finalize validates paths and expands a leading ~. Callers run it again after applying flags.
func (c *Config) Finalize() error {
	for _, p := range []struct {
		name  string
		value *string
	}{
		{name: "root", value: &c.Root},
		{name: "local", value: &c.Local},
	} {
		if strings.TrimSpace(*p.value) == "" {
			return fmt.Errorf(messages.ConfigPathRequiredFmt, p.name)
		}
		expanded, err := homedir.Expand(*p.value)
		if err != nil {
			return fmt.Errorf(messages.ConfigExpandPathFmt, p.name, *p.value, err)
		}
		*p.value = filepath.Clean(expanded)
	}
	return nil
}

func parseFile(data []byte, path string) (fileConfig, error) {
	var fc fileConfig
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fileConfig{}, fmt.Errorf(messages.ConfigInvalidFileFmt, path, err)
	}
	return fc, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.Root != nil {
		c.Root = *fc.Root
	}
	if fc.Local != nil {
		c.Local = *fc.Local
	}
	if fc.Zenity != nil {
		c.Zenity = *fc.Zenity
	}
	if fc.LogLevel != nil {
		level, err := logging.ParseLevel(*fc.LogLevel)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	if fc.BaseURL != nil {
		c.BaseURL = *fc.BaseURL
	}
	if fc.Codename != nil {
		c.Codename = *fc.Codename
	}
	if fc.MaxDownloadBytes != nil {
		if *fc.MaxDownloadBytes <= 0 {
			return fmt.Errorf(messages.ConfigInvalidIntFmt, "max_download_bytes", strconv.FormatInt(*fc.MaxDownloadBytes, 10))
		}
		c.MaxDownloadBytes = *fc.MaxDownloadBytes
	}
	if fc.Workers != nil {
		if *fc.Workers < 0 {
			return fmt.Errorf(messages.ConfigInvalidIntFmt, "workers", strconv.Itoa(*fc.Workers))
		}
		c.Workers = *fc.Workers
	}
	return nil
}

func (c *Config) applyEnv(sys System) error {
	if v := sys.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := sys.Getenv(EnvLocal); v != "" {
		c.Local = v
	}
	if v := sys.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(sys.Getenv(fetch.EnvZenity)); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf(messages.ConfigInvalidBoolFmt, fetch.EnvZenity, v)
		}
		c.Zenity = enabled
	}
	if v := sys.Getenv(logging.EnvLevel); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	return nil
}
