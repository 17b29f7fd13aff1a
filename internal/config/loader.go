package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION LOADER
// ============================================================================

// Loader layers configuration from, lowest priority first:
//  1. Default values
//  2. <dir>/base.{yaml,json}
//  3. <dir>/<environment>.{yaml,json}
//  4. Environment variables
type Loader struct {
	basePath    string
	environment Environment
	fileLoaders map[string]FileLoader
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	l := &Loader{
		basePath:    basePath,
		environment: env,
		fileLoaders: make(map[string]FileLoader),
	}
	l.RegisterLoader(&YAMLLoader{})
	l.RegisterLoader(&JSONLoader{})
	return l
}

// RegisterLoader registers a file loader for its extension.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders[loader.Extension()] = loader
}

// BasePath returns the directory files are read from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load builds the configuration. Missing files are skipped; malformed ones
// fail the load.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	if l.environment != "" {
		cfg.Environment = l.environment
	}

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	// The base file may itself name the environment.
	env := cfg.Environment
	if l.environment != "" {
		env = l.environment
	}
	cfg.Environment = env
	if err := l.loadFile(string(env), cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", env, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the first <name>.<ext> found, trying extensions in a
// stable order.
func (l *Loader) loadFile(name string, cfg *Config) error {
	exts := make([]string, 0, len(l.fileLoaders))
	for ext := range l.fileLoaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	for _, ext := range exts {
		path := filepath.Join(l.basePath, name+"."+ext)
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		err = l.fileLoaders[ext].Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
		return nil
	}
	return fs.ErrNotExist
}

// ============================================================================
// FILE LOADERS
// ============================================================================

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files. Durations are nanoseconds.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

// LoadFromDir loads configuration from dir, taking the environment from
// KG_ENVIRONMENT when set.
func LoadFromDir(dir string) (*Config, error) {
	return NewLoader(dir, Environment(os.Getenv("KG_ENVIRONMENT"))).Load()
}
