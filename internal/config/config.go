// Package config builds explicit configuration structs from the
// environment at process startup. The core packages never read ambient
// env state themselves; they receive a GameConfig and keep it.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/nomic/internal/models"
)

// Backend names the agent backend selected for all players at
// construction time.
const (
	BackendScripted  = "scripted"
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
)

// Load builds a GameConfig from NOMIC_* environment variables, falling
// back to the defaults for anything unset.
func Load() models.GameConfig {
	cfg := models.DefaultGameConfig()
	cfg.VictoryTarget = GetEnvInt("NOMIC_VICTORY_TARGET", cfg.VictoryTarget)
	cfg.ProposerPoints = GetEnvInt("NOMIC_PROPOSER_POINTS", cfg.ProposerPoints)
	cfg.ForVoterPoints = GetEnvInt("NOMIC_FOR_VOTER_POINTS", cfg.ForVoterPoints)
	cfg.AgainstVoterPenalty = GetEnvInt("NOMIC_AGAINST_VOTER_PENALTY", cfg.AgainstVoterPenalty)
	cfg.TurnDelay = GetEnvDuration("NOMIC_TURN_DELAY", cfg.TurnDelay)
	cfg.AgentTimeout = GetEnvDuration("NOMIC_AGENT_TIMEOUT", cfg.AgentTimeout)
	cfg.AgentConcurrency = GetEnvInt("NOMIC_AGENT_CONCURRENCY", cfg.AgentConcurrency)
	return cfg
}

// AgentBackend returns the configured agent backend name, defaulting to
// the scripted in-process backend.
func AgentBackend() string {
	return GetEnv("NOMIC_AGENT_BACKEND", BackendScripted)
}

// AnthropicAPIKey returns the credential for the Anthropic backend.
// Read once at startup; the backends themselves never touch the env.
func AnthropicAPIKey() string {
	return GetEnv("ANTHROPIC_API_KEY", "")
}

// OpenAIAPIKey returns the credential for the OpenAI backend.
func OpenAIAPIKey() string {
	return GetEnv("OPENAI_API_KEY", "")
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else a default.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration parses an environment variable as a time.Duration
// (e.g. "30s", "500ms"), else a default.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
