package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MemoryDSN включает хранилище в памяти вместо PostgreSQL
const MemoryDSN = "memory"

type Config struct {
	DBDSN          string        `mapstructure:"DB_DSN"`
	Environment    string        `mapstructure:"ENV"`
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SweepInterval  time.Duration `mapstructure:"SWEEP_INTERVAL"`
	Location       *time.Location
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `mapstructure:"TELEGRAM_CHAT_ID"`
}

func Load() (*Config, error) {
	// .env не обязателен
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    envOr("ENV", "development"),
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		RedisURL:       os.Getenv("REDIS_URL"),
		MigrationsPath: envOr("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	interval, err := time.ParseDuration(envOr("SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("parse SWEEP_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must not be negative")
	}
	cfg.SweepInterval = interval

	location, err := time.LoadLocation(envOr("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE: %w", err)
	}
	cfg.Location = location

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// UseMemoryStore запуск без PostgreSQL
func (c *Config) UseMemoryStore() bool {
	return c.DBDSN == MemoryDSN
}

// TelegramEnabled зеркалирование уведомлений в чат включено
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
