package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		ReviewURL string `yaml:"review_url"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Auth struct {
		TokenSecret   string `yaml:"token_secret"`
		SessionTTL    string `yaml:"session_ttl"`
		CheckInterval string `yaml:"check_interval"`
	} `yaml:"auth"`
	Quiz struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Draw struct {
		Steps    int    `yaml:"steps"`
		Interval string `yaml:"interval"`
	} `yaml:"draw"`
}

// Load reads YAML config from path, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AUTH_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}
}

// Validate enforces the two required connection secrets. Absence is a fatal
// startup error; the demo flag on the start command is the only bypass.
func (c Config) Validate() error {
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth token secret not configured")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
