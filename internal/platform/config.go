package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the name of the optional per-notebook configuration file.
const ConfigFile = "notekeep.yaml"

// Config is the content of a notekeep.yaml file.
type Config struct {
	Adapter  string
	Key      string
	Debounce time.Duration
	Watch    bool
	Language string
}

// fileConfig mirrors the YAML document; durations are written as strings
// such as "250ms".
type fileConfig struct {
	Adapter  string `yaml:"adapter"`
	Key      string `yaml:"key"`
	Debounce string `yaml:"debounce"`
	Watch    bool   `yaml:"watch"`
	Language string `yaml:"language"`
}

// LoadConfig reads the configuration file in dir. A missing file yields the
// zero Config, which leaves every default in place.
func LoadConfig(dir string) (Config, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration document. Unknown
// fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := Config{
		Adapter:  raw.Adapter,
		Key:      raw.Key,
		Watch:    raw.Watch,
		Language: raw.Language,
	}
	if raw.Debounce != "" {
		d, err := time.ParseDuration(raw.Debounce)
		if err != nil {
			return Config{}, fmt.Errorf("invalid config: debounce: %w", err)
		}
		if d < 0 {
			return Config{}, errors.New("invalid config: debounce must not be negative")
		}
		cfg.Debounce = d
	}
	if cfg.Language != "" {
		if _, err := language.Parse(cfg.Language); err != nil {
			return Config{}, fmt.Errorf("invalid config: language: %w", err)
		}
	}
	switch cfg.Adapter {
	case "", AdapterFS, AdapterSQLite, AdapterMemory:
	default:
		return Config{}, fmt.Errorf("invalid config: %w: %q", ErrUnknownAdapter, cfg.Adapter)
	}
	return cfg, nil
}
