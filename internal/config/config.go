package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is looked up in the working directory unless
// SURPLUSLINK_CONFIG points elsewhere. Env vars always win over the file.
const DefaultConfigFile = "surpluslink.toml"

type Config struct {
	Server     ServerConfig
	Sweep      SweepConfig
	Capacity   CapacityConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
	Cloudinary CloudinaryConfig
	Telegram   TelegramConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int // requests per second, global
}

type SweepConfig struct {
	Interval   time.Duration
	Workers    int
	BufferSize int
}

type CapacityConfig struct {
	// HardLimit turns the advisory over-capacity warning into a claim block.
	HardLimit bool
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func Load() (*Config, error) {
	cfg := defaults()

	if err := loadFile(cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			RateLimit: 20,
		},
		Sweep: SweepConfig{
			Interval:   time.Minute,
			Workers:    2,
			BufferSize: 50,
		},
		DB: DatabaseConfig{
			Path: "./data/surpluslink.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func loadFile(cfg *Config) error {
	path := getEnv("SURPLUSLINK_CONFIG", DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // file is optional
		}
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.RateLimit = getEnvInt("RATE_LIMIT_RPS", cfg.Server.RateLimit)

	cfg.Sweep.Interval = getEnvDuration("SWEEP_INTERVAL", cfg.Sweep.Interval)
	cfg.Sweep.Workers = getEnvInt("SWEEP_WORKERS", cfg.Sweep.Workers)
	cfg.Sweep.BufferSize = getEnvInt("SWEEP_BUFFER_SIZE", cfg.Sweep.BufferSize)

	cfg.Capacity.HardLimit = getEnvBool("CAPACITY_HARD_LIMIT", cfg.Capacity.HardLimit)

	cfg.DB.Path = getEnv("DB_PATH", cfg.DB.Path)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	cfg.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)

	cfg.Telegram.Token = getEnv("TELEGRAM_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.ChatID = getEnvInt64("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Sweep.Interval < 10*time.Second {
		return fmt.Errorf("sweep interval must be at least 10 seconds")
	}
	if c.Sweep.Workers < 1 {
		return fmt.Errorf("sweep workers must be at least 1")
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram token set without a chat id")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
