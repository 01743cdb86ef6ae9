package cw

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no config file exists in a directory or
// any of its parents.
var ErrConfigNotFound = errors.New("config file not found")

// Config represents the .cw.yaml configuration file.
type Config struct {
	// Game profile name (see RegisterGame). Defaults to stellaris.
	Game string `yaml:"game,omitempty"`

	// Root of the vanilla game installation.
	GamePath string `yaml:"game_path,omitempty"`

	// Mod directories layered on top of the game, in load order.
	ModPaths []string `yaml:"mod_paths,omitempty"`

	// Directory holding the .cwt schema files.
	CWTPath string `yaml:"cwt_path,omitempty"`

	Format FormatConfig `yaml:"format,omitempty"`

	// How long the language server waits for game data before giving up.
	InitTimeout time.Duration `yaml:"init_timeout,omitempty"`

	// Watch mod directories and rebuild derived caches on change.
	Watch bool `yaml:"watch,omitempty"`
}

// FormatConfig holds formatter settings.
type FormatConfig struct {
	Indent        int  `yaml:"indent,omitempty"`
	UseTabs       bool `yaml:"use_tabs,omitempty"`
	MaxBlankLines *int `yaml:"max_blank_lines,omitempty"`
}

// Options converts the config section to formatter options, filling in
// defaults for unset fields.
func (c FormatConfig) Options() FormatOptions {
	opts := DefaultFormatOptions()
	if c.Indent > 0 {
		opts.Indent = c.Indent
	}

	opts.UseTabs = c.UseTabs

	if c.MaxBlankLines != nil && *c.MaxBlankLines >= 0 {
		opts.MaxBlankLines = *c.MaxBlankLines
	}

	return opts
}

// Defaults used when a config omits a value.
const (
	DefaultGame        = "stellaris"
	DefaultInitTimeout = 2 * time.Minute
)

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".cw.yaml", ".cw.yml", "cw.yaml", "cw.yml"}

// LoadConfig finds and loads the nearest .cw.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path. Relative paths inside
// the file are resolved against the file's directory.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))

	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.Game == "" {
		c.Game = DefaultGame
	}

	if c.InitTimeout <= 0 {
		c.InitTimeout = DefaultInitTimeout
	}
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}

		return filepath.Join(base, p)
	}

	c.GamePath = abs(c.GamePath)
	c.CWTPath = abs(c.CWTPath)

	for i, p := range c.ModPaths {
		c.ModPaths[i] = abs(p)
	}
}
