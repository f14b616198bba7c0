package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Send      SendConfig
	Intent    IntentConfig
	Weather   WeatherConfig
	Session   SessionConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval time.Duration
}

type SendConfig struct {
	URL string
}

type IntentConfig struct {
	URL           string
	ConfidenceMin float64
	Timezone      string
}

type WeatherConfig struct {
	URL      string
	APIKey   string
	SendTime string
}

type SessionConfig struct {
	TTL time.Duration
}

func LoadAll() (*Config, error) {
	var missing []string

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: mustEnv("POSTGRES_URL", &missing),
		},
		Send: SendConfig{
			URL: mustEnv("SEND_WEBHOOK_URL", &missing),
		},
		Intent: IntentConfig{
			URL:           getEnv("INTENT_URL", ""),
			ConfidenceMin: getEnvFloat("INTENT_CONFIDENCE_MIN", 0.6),
			Timezone:      getEnv("TIMEZONE", "Asia/Kolkata"),
		},
		Weather: WeatherConfig{
			URL:      getEnv("WEATHER_URL", ""),
			APIKey:   os.Getenv("WEATHER_API_KEY"),
			SendTime: getEnv("WEATHER_SEND_TIME", "09:00"),
		},
		Scheduler: SchedulerConfig{
			Interval: time.Duration(getEnvInt("SCHED_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvInt("SESSION_TTL_SECONDS", 1800)) * time.Second,
		},
		Redis: loadRedisConfig(),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env vars: %v", missing)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 86400)) * time.Second,
	}
}

func validate(cfg *Config) error {
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHED_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Intent.ConfidenceMin < 0 || cfg.Intent.ConfidenceMin > 1 {
		return fmt.Errorf("INTENT_CONFIDENCE_MIN must be within [0, 1]")
	}
	if _, err := time.LoadLocation(cfg.Intent.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is not a valid IANA zone: %w", err)
	}
	if _, err := time.Parse("15:04", cfg.Weather.SendTime); err != nil {
		return fmt.Errorf("WEATHER_SEND_TIME must be HH:MM: %w", err)
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be >= 0")
	}
	return nil
}

func mustEnv(key string, missing *[]string) string {
	val := os.Getenv(key)
	if val == "" {
		*missing = append(*missing, key)
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid float for env %s: %s", key, v))
	}
	return f
}
