package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// Config holds all application configuration
type Config struct {
	Mode     string         `toml:"mode" validate:"oneof=server worker"`
	LogLevel string         `toml:"log_level" validate:"oneof=debug info warn error"`
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Rabbit   RabbitConfig   `toml:"rabbit"`
	Kafka    KafkaConfig    `toml:"kafka"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string `toml:"port" validate:"required,numeric"`
	RequestTimeout string `toml:"request_timeout"`
}

// GetRequestTimeout parses the request timeout, defaulting to 60s.
func (s ServerConfig) GetRequestTimeout() time.Duration {
	return parseDuration(s.RequestTimeout, 60*time.Second)
}

// UpstreamConfig holds the base URLs and client settings for the services we aggregate.
type UpstreamConfig struct {
	InvestmentsURL        string `toml:"investments_url" validate:"required,url"`
	FinancialCompaniesURL string `toml:"financial_companies_url" validate:"required,url"`
	ExportURL             string `toml:"export_url" validate:"omitempty,url"`
	Timeout               string `toml:"timeout"`
	RateLimit             int    `toml:"rate_limit" validate:"gte=0"`
	LookupConcurrency     int    `toml:"lookup_concurrency" validate:"gte=1"`
}

// GetTimeout parses the upstream HTTP client timeout, defaulting to 30s.
func (u UpstreamConfig) GetTimeout() time.Duration {
	return parseDuration(u.Timeout, 30*time.Second)
}

// RabbitConfig holds the broker used by the report worker.
type RabbitConfig struct {
	URL string `toml:"url"`
}

// KafkaConfig holds report event publishing settings. Publishing is off without brokers.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// ExportBaseURL returns the export sink base URL, falling back to the investments service.
func (u UpstreamConfig) ExportBaseURL() string {
	if u.ExportURL != "" {
		return u.ExportURL
	}
	return u.InvestmentsURL
}

func defaults() *Config {
	return &Config{
		Mode:     ModeServer,
		LogLevel: "info",
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: "60s",
		},
		Upstream: UpstreamConfig{
			Timeout:           "30s",
			LookupConcurrency: 4,
		},
		Kafka: KafkaConfig{
			Topic: "admin-report-events",
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file, a .env file
// and the process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Mode = getEnv("APP_MODE", cfg.Mode)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Upstream.InvestmentsURL = getEnv("INVESTMENTS_SERVICE_URL", cfg.Upstream.InvestmentsURL)
	cfg.Upstream.FinancialCompaniesURL = getEnv("FINANCIAL_COMPANIES_SERVICE_URL", cfg.Upstream.FinancialCompaniesURL)
	cfg.Upstream.ExportURL = getEnv("INVESTMENTS_EXPORT_URL", cfg.Upstream.ExportURL)
	cfg.Rabbit.URL = getEnv("RABBIT_URL", cfg.Rabbit.URL)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	cfg.Server.RequestTimeout = getEnv("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Upstream.Timeout = getEnv("UPSTREAM_TIMEOUT", cfg.Upstream.Timeout)

	if v := os.Getenv("UPSTREAM_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse UPSTREAM_RATE_LIMIT: %w", err)
		}
		cfg.Upstream.RateLimit = n
	}

	if v := os.Getenv("LOOKUP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse LOOKUP_CONCURRENCY: %w", err)
		}
		cfg.Upstream.LookupConcurrency = n
	}

	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
