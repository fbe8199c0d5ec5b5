// Package config provides configuration loading and validation for the agent.
//
// Configuration is resolved once at startup from an optional JSON file plus
// environment overrides (a .env file is honored via godotenv in main), then
// validated and passed down by value. Nothing mutates it afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultBaseURL is the Poseidon API host all campaign operations target.
const DefaultBaseURL = "https://poseidon-depin-server.storyapis.com"

// Config is the immutable runtime configuration.
type Config struct {
	// Inputs
	TokenFile string `json:"token_file,omitempty" validate:"required"` // Bearer tokens, one per line
	ProxyFile string `json:"proxy_file,omitempty"`                     // Proxy URIs, one per line; optional
	UseProxy  bool   `json:"use_proxy,omitempty"`                      // Round-robin proxies over accounts

	// Remote API
	BaseURL               string `json:"base_url,omitempty" validate:"required,url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty" validate:"min=1"`

	// Retry policy
	MaxAttempts        int `json:"max_attempts,omitempty" validate:"min=1"`
	InitialBackoffMs   int `json:"initial_backoff_ms,omitempty" validate:"min=1"`
	RateLimitBackoffMs int `json:"rate_limit_backoff_ms,omitempty" validate:"min=1"`

	// Pacing
	UploadPacingSeconds int `json:"upload_pacing_seconds,omitempty" validate:"min=0"`
	CooldownMinSeconds  int `json:"cooldown_min_seconds,omitempty" validate:"min=0,ltefield=CooldownMaxSeconds"`
	CooldownMaxSeconds  int `json:"cooldown_max_seconds,omitempty" validate:"min=0"`
	AccountDelaySeconds int `json:"account_delay_seconds,omitempty" validate:"min=0"`

	// Synthesis
	SynthesisTimeoutSeconds int `json:"synthesis_timeout_seconds,omitempty" validate:"min=1"`
}

// Default returns the configuration matching the upstream service's expected
// request cadence. The backoff and pacing numbers keep the agent under the
// API's rate limits.
func Default() Config {
	return Config{
		TokenFile:               "token.txt",
		ProxyFile:               "proxy.txt",
		BaseURL:                 DefaultBaseURL,
		RequestTimeoutSeconds:   60,
		MaxAttempts:             5,
		InitialBackoffMs:        5000,
		RateLimitBackoffMs:      30000,
		UploadPacingSeconds:     15,
		CooldownMinSeconds:      240,
		CooldownMaxSeconds:      450,
		AccountDelaySeconds:     5,
		SynthesisTimeoutSeconds: 30,
	}
}

// Load resolves the effective configuration: defaults, then the JSON file at
// path (skipped when path is empty), then environment overrides, validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays POSEIDON_* environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("POSEIDON_TOKEN_FILE"); v != "" {
		c.TokenFile = v
	}
	if v := os.Getenv("POSEIDON_PROXY_FILE"); v != "" {
		c.ProxyFile = v
	}
	if v := os.Getenv("POSEIDON_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("POSEIDON_USE_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UseProxy = b
		}
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RequestTimeout is the per-request HTTP client timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// InitialBackoff is the first retry delay used by the request executor.
func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

// RateLimitBackoff is the forced retry delay after a 429 response.
func (c Config) RateLimitBackoff() time.Duration {
	return time.Duration(c.RateLimitBackoffMs) * time.Millisecond
}

// UploadPacing is the delay between upload attempts while quota remains.
func (c Config) UploadPacing() time.Duration {
	return time.Duration(c.UploadPacingSeconds) * time.Second
}

// CooldownRange bounds the randomized wait between campaigns of one account.
func (c Config) CooldownRange() (time.Duration, time.Duration) {
	return time.Duration(c.CooldownMinSeconds) * time.Second,
		time.Duration(c.CooldownMaxSeconds) * time.Second
}

// AccountDelay separates consecutive accounts.
func (c Config) AccountDelay() time.Duration {
	return time.Duration(c.AccountDelaySeconds) * time.Second
}

// SynthesisTimeout bounds one text-to-speech synthesis call.
func (c Config) SynthesisTimeout() time.Duration {
	return time.Duration(c.SynthesisTimeoutSeconds) * time.Second
}
