// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Server   ServerConfig   `toml:"server"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	UserID         *string `toml:"user-id"`
	DetectorURL    *string `toml:"detector-url"`
	VerifierURL    *string `toml:"verifier-url"`
	Verifier       *string `toml:"verifier"`
	CaptureCmd     *string `toml:"capture-cmd"`
	TimeoutSeconds *int    `toml:"timeout-seconds"`
}

// OpenAIConfig maps settings for the coach and the direct vision verifier.
type OpenAIConfig struct {
	Model       *string `toml:"model"`
	VisionModel *string `toml:"vision-model"`
	APIKeyEnv   *string `toml:"api-key-env"`
	BaseURL     *string `toml:"base-url"`
}

// ServerConfig maps settings for the HTTP API.
type ServerConfig struct {
	Addr    *string `toml:"addr"`
	Metrics *bool   `toml:"metrics"`
}

// Verifier backends accepted by practice.verifier.
const (
	VerifierEndpoint = "endpoint"
	VerifierOpenAI   = "openai"
	VerifierNone     = "none"
)

// DefaultAPIKeyEnv names the environment variable holding the OpenAI key.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// ValidateVerifier reports whether name is a known verifier backend.
func ValidateVerifier(name string) error {
	switch name {
	case VerifierEndpoint, VerifierOpenAI, VerifierNone:
		return nil
	default:
		return fmt.Errorf("unknown verifier %q (want endpoint, openai or none)", name)
	}
}

// APIKey resolves the OpenAI key from the configured environment variable.
func (c OpenAIConfig) APIKey() string {
	name := DefaultAPIKeyEnv
	if c.APIKeyEnv != nil && *c.APIKeyEnv != "" {
		name = *c.APIKeyEnv
	}
	return os.Getenv(name)
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if cfg.Practice.Verifier != nil {
		if err := ValidateVerifier(*cfg.Practice.Verifier); err != nil {
			return FileConfig{}, err
		}
	}
	if cfg.Practice.TimeoutSeconds != nil && *cfg.Practice.TimeoutSeconds <= 0 {
		return FileConfig{}, fmt.Errorf("practice.timeout-seconds must be positive")
	}
	return cfg, nil
}
