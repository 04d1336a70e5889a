// Package config holds runtime constants and the YAML configuration
// for the kiln CLI and embeddings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "KILN_CONFIG"

// Config is the embedding-facing configuration surface. Everything in
// it is optional; zero values mean "feature off, defaults on".
type Config struct {
	// Debug enables debug logging
	Debug bool `yaml:"debug"`

	// NoColor forces plain output even on a terminal
	NoColor bool `yaml:"noColor"`

	// AuditDB is the SQLite path for the violation store; empty
	// disables auditing
	AuditDB string `yaml:"auditDb"`

	// IntrospectAddr is the listen address for the introspection
	// service; empty disables it
	IntrospectAddr string `yaml:"introspectAddr"`

	// OnMissingParam selects the response to an annotation naming a
	// parameter the code object does not have: "abort" (default) or
	// "skip"
	OnMissingParam string `yaml:"onMissingParam"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{OnMissingParam: "abort"}
}

// Load reads a YAML config file. A missing file yields the defaults;
// a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.OnMissingParam == "" {
		cfg.OnMissingParam = "abort"
	}
	if cfg.OnMissingParam != "abort" && cfg.OnMissingParam != "skip" {
		return cfg, fmt.Errorf("config %s: onMissingParam must be 'abort' or 'skip', got %q", path, cfg.OnMissingParam)
	}
	return cfg, nil
}

// LoadDefault loads the config named by KILN_CONFIG, falling back to
// kiln.yaml in the working directory.
func LoadDefault() (Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = "kiln.yaml"
	}
	return Load(path)
}
