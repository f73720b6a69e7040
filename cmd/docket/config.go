package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the content of docket.yaml.
type Config struct {
	Store      string          `yaml:"store"`      // store URI, e.g. ./data or firestore://project
	Collection string          `yaml:"collection"` // default collection path
	ReadOnly   bool            `yaml:"read_only"`
	FS         FSConfig        `yaml:"fs"`
	Firestore  FirestoreConfig `yaml:"firestore"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// FSConfig holds settings of the filesystem adapter.
type FSConfig struct {
	Format     string   `yaml:"format"` // json (default) or yaml
	Ignore     []string `yaml:"ignore"`
	DebounceMS int      `yaml:"debounce_ms"`
}

// FirestoreConfig holds settings of the Firestore adapter.
type FirestoreConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Database        string `yaml:"database"`
	EmulatorHost    string `yaml:"emulator_host"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info (default), warn, error
}

// loadConfig reads a YAML configuration file, expanding ${VAR} and
// ${VAR:-default} references from the environment.
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	switch strings.ToLower(c.FS.Format) {
	case "", "json", "yaml", "yml":
	default:
		return fmt.Errorf("fs.format must be json or yaml, got %q", c.FS.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.FS.DebounceMS < 0 {
		return fmt.Errorf("fs.debounce_ms must not be negative")
	}
	return nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
