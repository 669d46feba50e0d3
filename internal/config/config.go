// Package config loads lbmfmt settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no config file exists at the searched locations.
var ErrNotFound = errors.New("no config file")

// ProjectFileNames are searched, in order, in each directory walking upward.
var ProjectFileNames = []string{".lbmfmt.yml", ".lbmfmt.yaml", ".lbmfmt.toml", "lbmfmt.toml"}

// DefaultInclude matches LispBM sources when walking directories.
var DefaultInclude = []string{"**/*.lisp", "**/*.lbm"}

// FileConfig is the on-disk configuration shape. Nil fields are unset.
type FileConfig struct {
	StackClosingBrackets *bool    `yaml:"stack_closing_brackets" toml:"stack_closing_brackets"`
	Include              []string `yaml:"include" toml:"include"`
	Exclude              []string `yaml:"exclude" toml:"exclude"`
	Jobs                 *int     `yaml:"jobs" toml:"jobs"`
	Cache                *bool    `yaml:"cache" toml:"cache"`
}

// Settings is a fully resolved configuration.
type Settings struct {
	StackClosingBrackets bool
	Include              []string
	Exclude              []string
	Jobs                 int
	Cache                bool

	// Sources lists the files that contributed, lowest precedence first.
	Sources []string
}

// Defaults returns the settings used when no file sets a value.
func Defaults() Settings {
	return Settings{
		StackClosingBrackets: true,
		Include:              append([]string(nil), DefaultInclude...),
	}
}

// Apply overlays the fields set in fc onto s.
func (s Settings) Apply(fc FileConfig) Settings {
	if fc.StackClosingBrackets != nil {
		s.StackClosingBrackets = *fc.StackClosingBrackets
	}
	if len(fc.Include) > 0 {
		s.Include = append([]string(nil), fc.Include...)
	}
	if len(fc.Exclude) > 0 {
		s.Exclude = append([]string(nil), fc.Exclude...)
	}
	if fc.Jobs != nil {
		s.Jobs = *fc.Jobs
	}
	if fc.Cache != nil {
		s.Cache = *fc.Cache
	}
	return s
}

// LoadFile reads a config file, choosing the decoder from its extension.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(b), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("%s: parse TOML: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("%s: parse YAML: %w", path, err)
		}
	default:
		return FileConfig{}, fmt.Errorf("%s: unsupported config format", path)
	}
	return cfg, nil
}

// FindProject walks upward from startDir and returns the first project config file.
func FindProject(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		for _, name := range ProjectFileNames {
			candidate := filepath.Join(dir, name)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				return candidate, nil
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// GlobalPath returns the user-wide config location.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "lbmfmt", "config.yml"), nil
}

// Resolve builds settings from the defaults, the global config and the
// project config above startDir. A non-empty explicit path replaces the
// project lookup and must exist.
func Resolve(explicit, startDir string) (Settings, error) {
	settings := Defaults()

	if global, err := GlobalPath(); err == nil {
		if _, statErr := os.Stat(global); statErr == nil {
			fc, err := LoadFile(global)
			if err != nil {
				return settings, err
			}
			settings = settings.Apply(fc)
			settings.Sources = append(settings.Sources, global)
		}
	}

	path := explicit
	if path == "" {
		found, err := FindProject(startDir)
		if errors.Is(err, ErrNotFound) {
			return settings, nil
		}
		if err != nil {
			return settings, err
		}
		path = found
	}
	fc, err := LoadFile(path)
	if err != nil {
		return settings, err
	}
	settings = settings.Apply(fc)
	settings.Sources = append(settings.Sources, path)
	return settings, nil
}
