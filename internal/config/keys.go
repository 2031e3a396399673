package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// providerEnv maps a provider name to its API key environment variable.
var providerEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// APIKeyEnv returns the environment variable holding the provider's API key.
func APIKeyEnv(provider string) string {
	return providerEnv[provider]
}

// GetAPIKey returns the API key for provider.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config, provider string) (string, error) {
	if env := providerEnv[provider]; env != "" {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}

	if key := configuredKey(cfg, provider); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("%w for %s", ErrNoAPIKey, provider)
}

func configuredKey(cfg *Config, provider string) string {
	if cfg == nil {
		return ""
	}
	var key string
	switch provider {
	case "anthropic":
		key = cfg.LLM.Anthropic.APIKey
	case "openai":
		key = cfg.LLM.OpenAI.APIKey
	case "gemini":
		key = cfg.LLM.Gemini.APIKey
	}
	// Expand any remaining env var references
	key = os.ExpandEnv(key)
	if key == "" || strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the provider's API key was sourced from.
func GetAPIKeySource(cfg *Config, provider string) KeySource {
	if env := providerEnv[provider]; env != "" && os.Getenv(env) != "" {
		return KeySourceEnv
	}
	if configuredKey(cfg, provider) != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
