package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Redis       RedisConfig
	FormToken   FormTokenConfig
	Relay       RelayConfig
	Form        FormConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type FormTokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// RelayConfig: внешний почтовый relay (FormSubmit-совместимый endpoint)
type RelayConfig struct {
	URL          string
	Timeout      time.Duration
	HiddenFields map[string]string // поля, добавляемые окружением
}

type FormConfig struct {
	RulesFile         string
	ClockTickInterval time.Duration
	SessionIdleTTL    time.Duration

	// RelayOperatorToken открывает канал Relay всех форм. Пустой: только свои формы.
	RelayOperatorToken string
}

// RateLimitConfig: грубая защита по IP поверх лимита сессии формы
type RateLimitConfig struct {
	IPLimit  int
	IPWindow time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Загрузка .env файла (если существует)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		FormToken: FormTokenConfig{
			Secret: getEnv("FORM_TOKEN_SECRET", "change-me-form-token-secret"),
			TTL:    getEnvAsDuration("FORM_TOKEN_TTL", 12*time.Hour),
			Issuer: getEnv("FORM_TOKEN_ISSUER", "contact-form"),
		},
		Relay: RelayConfig{
			URL:          getEnv("RELAY_URL", ""),
			Timeout:      getEnvAsDuration("RELAY_TIMEOUT", 10*time.Second),
			HiddenFields: getEnvAsMap("RELAY_HIDDEN_FIELDS", map[string]string{"_captcha": "false"}),
		},
		Form: FormConfig{
			RulesFile:         getEnv("RULES_FILE", ""),
			ClockTickInterval: getEnvAsDuration("CLOCK_TICK_INTERVAL", time.Second),
			SessionIdleTTL:    getEnvAsDuration("FORM_SESSION_IDLE_TTL", 2*time.Hour),

			RelayOperatorToken: getEnv("RELAY_OPERATOR_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			IPLimit:  getEnvAsInt("IP_RATE_LIMIT", 30),
			IPWindow: getEnvAsDuration("IP_RATE_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.FormToken.Secret == "" {
		return fmt.Errorf("form token secret must be set")
	}
	if c.Environment == "production" && c.FormToken.Secret == "change-me-form-token-secret" {
		return fmt.Errorf("FORM_TOKEN_SECRET must be changed in production")
	}
	if c.Relay.URL == "" {
		return fmt.Errorf("RELAY_URL must be set")
	}
	u, err := url.Parse(c.Relay.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("RELAY_URL must be an absolute http(s) URL")
	}
	if c.Form.ClockTickInterval <= 0 {
		return fmt.Errorf("CLOCK_TICK_INTERVAL must be positive")
	}
	if t := c.Form.RelayOperatorToken; t != "" && len(t) < 16 {
		return fmt.Errorf("RELAY_OPERATOR_TOKEN must be at least 16 characters")
	}
	if c.RateLimit.IPLimit <= 0 || c.RateLimit.IPWindow <= 0 {
		return fmt.Errorf("IP rate limit must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsMap читает пары вида "k=v,k2=v2"
func getEnvAsMap(key string, defaultValue map[string]string) map[string]string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	out := make(map[string]string)
	for _, part := range strings.Split(valueStr, ",") {
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
