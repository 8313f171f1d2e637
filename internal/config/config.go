package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the triage router
type Config struct {
	// Provider credentials. A provider with an empty key is skipped
	// by the invocation chain, never errored on.
	OpenAIAPIKey    string `env:"OPENAI_API_KEY" envDefault:""`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY" envDefault:""`

	// Provider models
	OpenAIModel    string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicModel string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	GoogleModel    string `env:"GOOGLE_MODEL" envDefault:"gemini-1.5-flash"`

	// Invocation chain
	PrimaryProvider string        `env:"PRIMARY_PROVIDER" envDefault:"openai"`
	ProviderOrder   []string      `env:"PROVIDER_ORDER" envSeparator:"," envDefault:"openai,anthropic,google"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// Speech transcription
	WhisperServerURL string `env:"WHISPER_SERVER_URL" envDefault:""`

	// Records and policy
	DataDir    string `env:"DATA_DIR" envDefault:""`
	PolicyPath string `env:"POLICY_PATH" envDefault:""`

	// Symptom log storage. DATABASE_URL switches the log from the
	// JSONL file to Postgres.
	SymptomLogPath string `env:"SYMPTOM_LOG_PATH" envDefault:"symptom_log.jsonl"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:""`

	// Turn log
	TurnLogPath string `env:"TURN_LOG_PATH" envDefault:"conversation_log.jsonl"`

	// Redis turn-event stream. Disabled when REDIS_ADDR is empty.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	TurnStream    string `env:"TURN_STREAM" envDefault:"triage.turns"`

	// Stream-worker mode. "repl" reads turns from stdin; "worker"
	// consumes utterances from the request stream instead.
	Mode           string        `env:"MODE" envDefault:"repl"`
	WorkerID       string        `env:"WORKER_ID" envDefault:"triage-worker-1"`
	RequestStream  string        `env:"REQUEST_STREAM" envDefault:"triage.requests"`
	ConsumerGroup  string        `env:"CONSUMER_GROUP" envDefault:"triage-workers"`
	ReplyStream    string        `env:"REPLY_STREAM" envDefault:"triage.replies"`
	StreamBlockDur time.Duration `env:"STREAM_BLOCK_TIME" envDefault:"5s"`
	HealthPort     int           `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PrimaryProvider == "" {
		return fmt.Errorf("PRIMARY_PROVIDER is required")
	}

	if len(c.ProviderOrder) == 0 {
		return fmt.Errorf("PROVIDER_ORDER is required")
	}

	for _, name := range append([]string{c.PrimaryProvider}, c.ProviderOrder...) {
		if !isKnownProvider(name) {
			return fmt.Errorf("unknown provider %q: must be one of openai, anthropic, google", name)
		}
	}

	// Provider API keys are optional - a session can run with any
	// subset credentialed, or none at all (deterministic paths only).

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	if c.SymptomLogPath == "" && c.DatabaseURL == "" {
		return fmt.Errorf("SYMPTOM_LOG_PATH or DATABASE_URL is required")
	}

	if c.TurnLogPath == "" {
		return fmt.Errorf("TURN_LOG_PATH is required")
	}

	if c.RedisAddr != "" && c.TurnStream == "" {
		return fmt.Errorf("TURN_STREAM is required when REDIS_ADDR is set")
	}

	if c.Mode != "repl" && c.Mode != "worker" {
		return fmt.Errorf("MODE must be repl or worker")
	}

	if c.Mode == "worker" {
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required in worker mode")
		}
		if c.RequestStream == "" || c.ConsumerGroup == "" || c.ReplyStream == "" {
			return fmt.Errorf("REQUEST_STREAM, CONSUMER_GROUP, and REPLY_STREAM are required in worker mode")
		}
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isKnownProvider checks a provider name against the supported set
func isKnownProvider(name string) bool {
	switch name {
	case "openai", "anthropic", "google":
		return true
	}
	return false
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Mode=%s, PrimaryProvider=%s, ProviderOrder=%v, LLMTimeout=%s, DataDir=%s, "+
			"PolicyPath=%s, SymptomLogPath=%s, TurnLogPath=%s, RedisAddr=%s, LogLevel=%s}",
		c.Mode,
		c.PrimaryProvider,
		c.ProviderOrder,
		c.LLMTimeout,
		c.DataDir,
		c.PolicyPath,
		c.SymptomLogPath,
		c.TurnLogPath,
		c.RedisAddr,
		c.LogLevel,
	)
}
