package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port string `yaml:"port" env:"PORT"`
}

type Log struct {
	Mode string `yaml:"mode" env:"LOG_MODE"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      string `yaml:"ttl" env:"REDIS_TTL"`
}

type Postgres struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

type Quiz struct {
	TTL         string `yaml:"ttl" env:"QUIZ_TTL"`
	Definitions string `yaml:"definitions" env:"QUIZ_DEFINITIONS"`
}

type Submission struct {
	Timeout   string `yaml:"timeout" env:"SUBMISSION_TIMEOUT"`
	Retention string `yaml:"retention" env:"SUBMISSION_RETENTION"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	Redis      Redis      `yaml:"redis"`
	Postgres   Postgres   `yaml:"postgres"`
	SQLite     SQLite     `yaml:"sqlite"`
	Quiz       Quiz       `yaml:"quiz"`
	Submission Submission `yaml:"submission"`
}

// Load reads YAML config from path and then applies environment overrides.
// A missing file is not an error; the environment alone is used.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
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
