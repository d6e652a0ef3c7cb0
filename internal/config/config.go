// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port string `yaml:"port"`

	// Webhook destination for the automation collaborator. An empty URL is
	// allowed; execution attempts will then fail as retryable.
	WebhookURL    string `yaml:"webhook_url"`
	WebhookAPIKey string `yaml:"webhook_api_key"`

	// Conversation state backend.
	UseRedis      bool   `yaml:"use_redis"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// SQLite path for the appointment mirror. Empty disables persistence.
	DBPath string `yaml:"db_path"`

	StateTTL time.Duration `yaml:"state_ttl"`
	LogLevel string        `yaml:"log_level"`
}

// Load reads configuration from a .env file (if present), the environment,
// and an optional YAML file named by PARLEY_CONFIG. YAML values win over
// environment values, matching how deployments pin their settings.
func Load() (*Config, error) {
	// Missing .env is fine; it is a local development convenience.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookAPIKey: getEnv("WEBHOOK_API_KEY", ""),
		UseRedis:      getEnvBool("USE_REDIS", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DBPath:        getEnv("DB_PATH", ""),
		StateTTL:      24 * time.Hour,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("PARLEY_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.UseRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty when USE_REDIS is set")
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("state_ttl must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
