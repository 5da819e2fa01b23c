// Package config provides centralized configuration for the slate server.
// Values come from an optional YAML file (SLATE_CONFIG) with environment
// variable overrides on top.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "SLATE_CONFIG"

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string `yaml:"port"`

	// DBPath is the path to the SQLite database file.
	DBPath string `yaml:"dbPath"`

	// WorkerInterval is the polling interval for the brief worker.
	WorkerInterval time.Duration `yaml:"workerInterval"`

	// HTTPTimeout is the timeout for outgoing brief fetches.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string `yaml:"corsOrigin"`

	// EnrichEnabled controls whether the worker fetches reference links.
	// When false the stub extractor is used instead.
	EnrichEnabled bool `yaml:"enrichEnabled"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.WorkerInterval = envDuration("WORKER_INTERVAL", cfg.WorkerInterval)
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.CORSOrigin = envOr("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.EnrichEnabled = envBool("ENRICH_ENABLED", cfg.EnrichEnabled)

	return cfg
}

func defaultConfig() Config {
	return Config{
		Port:           "8080",
		DBPath:         "slate.db",
		WorkerInterval: 3 * time.Second,
		HTTPTimeout:    30 * time.Second,
		CORSOrigin:     "*",
		EnrichEnabled:  true,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
