package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LLMProvider      string `envconfig:"LLM_PROVIDER" default:"anthropic"` // anthropic, openai, ollama, gemini, rules
	AnthropicKey     string `envconfig:"ANTHROPIC_API_KEY"`                // API key (X-Api-Key header)
	AnthropicToken   string `envconfig:"ANTHROPIC_AUTH_TOKEN"`             // OAuth token (Authorization: Bearer header)
	OpenAIKey        string `envconfig:"OPENAI_API_KEY"`
	GeminiKey        string `envconfig:"GEMINI_API_KEY"`
	LLMModel         string `envconfig:"LLM_MODEL"`
	LLMBaseURL       string `envconfig:"LLM_BASE_URL"`
	OllamaBaseURL    string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434/v1"`
	MaxContextTokens int    `envconfig:"MAX_CONTEXT_TOKENS" default:"16000"`
	MaxOutputTokens  int    `envconfig:"LLM_MAX_TOKENS" default:"500"`

	DiscordToken     string `envconfig:"DISCORD_BOT_TOKEN"`
	CaregiverWebhook string `envconfig:"CAREGIVER_WEBHOOK_URL"` // fallback when a patient has none

	DatabasePath    string `envconfig:"DATABASE_PATH" default:"./anchor.db"`
	DefaultTimezone string `envconfig:"DEFAULT_TIMEZONE" default:"UTC"`

	ReminderCron string `envconfig:"REMINDER_CRON" default:"@every 1m"`
	DigestCron   string `envconfig:"DIGEST_CRON" default:"0 8 * * *"`

	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8080"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	HistoryBackend     string        `envconfig:"HISTORY_BACKEND" default:"memory"` // memory, redis
	HistoryLimit       int           `envconfig:"HISTORY_LIMIT" default:"10"`
	HistoryMaxPatients int           `envconfig:"HISTORY_MAX_PATIENTS" default:"1024"`
	HistoryTTL         time.Duration `envconfig:"HISTORY_TTL" default:"24h"`
	RedisURL           string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"auto"` // auto, json, console
}

// ConfigDir returns ~/.anchor.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anchor"
	}
	return filepath.Join(home, ".anchor")
}

// ConfigFile returns the user-level env file loaded after ./.env.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

// Load reads ./.env and ~/.anchor/config into the environment (existing
// variables win, then .env, then the user file) and decodes the result.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if no .env
	_ = godotenv.Load(ConfigFile())

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "openai", "ollama", "gemini", "rules":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %s", c.LLMProvider)
	}
	switch c.HistoryBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND: %s", c.HistoryBackend)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicKey
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiKey
	}
	return ""
}

// BaseURL returns LLM_BASE_URL, or the Ollama default for the ollama provider.
func (c *Config) BaseURL() string {
	if c.LLMBaseURL != "" {
		return c.LLMBaseURL
	}
	if c.LLMProvider == "ollama" {
		return c.OllamaBaseURL
	}
	return ""
}

// Location returns the zone used for patients without one of their own.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
