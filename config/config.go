package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Harvia   HarviaConfig   `json:"harvia"`
	Stream   StreamConfig   `json:"stream"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `json:"path"`
}

// HarviaConfig contains Harvia cloud account settings. Username and password
// are mandatory and never silently defaulted.
type HarviaConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	BaseURL  string `json:"base_url"`
}

// StreamConfig contains live stream and monitor polling settings
type StreamConfig struct {
	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

// PollInterval returns the poll interval as a duration.
func (s StreamConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// TelegramConfig contains optional alerting settings. The presence monitor
// only runs when a token is configured.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}

	if c.Harvia.Username == "" || c.Harvia.Password == "" {
		return fmt.Errorf("%w: Harvia username and password are required", ErrInvalidConfig)
	}

	if c.Harvia.BaseURL == "" {
		c.Harvia.BaseURL = "https://prod.api.harvia.io" // default
	}

	if c.Stream.PollIntervalSeconds <= 0 {
		c.Stream.PollIntervalSeconds = 5 // default
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("%w: telegram chat_id is required when a token is set", ErrInvalidConfig)
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables.
// HARVIA_USERNAME, HARVIA_PASSWORD and POLL_INTERVAL keep the names the
// dashboard has always used; everything else is SIGMA_ prefixed.
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SIGMA_HOST", "0.0.0.0"),
			Port: getEnvInt("SIGMA_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("SIGMA_DB_PATH", "./sigma.db"),
		},
		Harvia: HarviaConfig{
			Username: getEnv("HARVIA_USERNAME", ""),
			Password: getEnv("HARVIA_PASSWORD", ""),
			BaseURL:  getEnv("HARVIA_BASE_URL", "https://prod.api.harvia.io"),
		},
		Stream: StreamConfig{
			PollIntervalSeconds: getEnvInt("POLL_INTERVAL", 5),
		},
		Telegram: TelegramConfig{
			Token:  getEnv("SIGMA_TELEGRAM_TOKEN", ""),
			ChatID: getEnvInt64("SIGMA_TELEGRAM_CHAT_ID", 0),
		},
		Logging: LoggingConfig{
			Format: getEnv("SIGMA_LOG_FORMAT", "json"),
			Level:  getEnv("SIGMA_LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
