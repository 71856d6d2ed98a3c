package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the project config file name.
const ConfigFile = ".hyperscript.yaml"

// Config is the scan section of a project config.
//
//	extensions: [.html, .jinja]
//	exclude: [node_modules, build]
//	db: .hyperscript/usage.db
//	debounce: 300ms
type Config struct {
	Extensions []string      `yaml:"extensions"`
	Exclude    []string      `yaml:"exclude"`
	DB         string        `yaml:"db"`
	Debounce   time.Duration `yaml:"debounce"`
}

// LoadConfig reads a config file. A missing file is not an error and
// yields the zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Debounce < 0 {
		return cfg, fmt.Errorf("%s: debounce must not be negative", path)
	}
	return cfg, nil
}

// FindConfig loads ConfigFile from dir or its nearest ancestor that has
// one. It returns the path it loaded, or "" when there is none.
func FindConfig(dir string) (Config, string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, "", err
	}
	for {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadConfig(path)
			return cfg, path, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Config{}, "", nil
		}
		dir = parent
	}
}

// Options turns the config into scanner options. Unset fields keep the
// defaults.
func (c Config) Options() []Option {
	var opts []Option
	if len(c.Extensions) > 0 {
		opts = append(opts, WithExtensions(c.Extensions...))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, WithExcludes(c.Exclude...))
	}
	return opts
}
