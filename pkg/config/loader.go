package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads path (if it exists), expands ${VAR} references against the
// process environment, unmarshals it over Defaults(), applies the
// DESKCORE_* environment overlay, and validates the result.
//
// A missing file is not an error: Load falls back to Defaults() plus the
// environment overlay, so a container can run config-file-free.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = ExpandEnv(data)
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return Config{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
			}
			if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
				return Config{}, NewLoadError(path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults + env overlay
		default:
			return Config{}, NewLoadError(path, err)
		}
	}

	applyEnvOverlay(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverlay lets a handful of well-known DESKCORE_* variables win
// over both defaults and the YAML file, matching how the rest of the
// ecosystem treats secrets and deploy-time endpoints: never committed to
// a config file, always supplied by the environment.
func applyEnvOverlay(cfg *Config) {
	if v := os.Getenv("DESKCORE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DESKCORE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DESKCORE_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DESKCORE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("DESKCORE_CLASSIFIER_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
}

// Validate checks invariants that Defaults() alone cannot guarantee once
// a file or the environment has overridden fields.
func (c Config) Validate() error {
	if c.Database.Password == "" {
		return NewValidationError("database", "password", ErrMissingRequiredField)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return NewValidationError("database", "max_idle_conns", ErrInvalidValue)
	}
	if c.Thresholds.NeedsClarification < 0 || c.Thresholds.NeedsClarification > 1 {
		return NewValidationError("thresholds", "needs_clarification", ErrInvalidValue)
	}
	if c.Thresholds.AutoResolve < 0 || c.Thresholds.AutoResolve > 1 {
		return NewValidationError("thresholds", "auto_resolve", ErrInvalidValue)
	}
	if c.SLA.SweepInterval <= 0 {
		return NewValidationError("sla", "sweep_interval", ErrInvalidValue)
	}
	return nil
}
