// Copyright 2026 RateGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gate

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. Values come from an optional
// YAML file named by GATE_CONFIG, with environment variables taking
// precedence over the file and built-in defaults filling the rest.
type Config struct {
	Port               string   `yaml:"port"`
	PostgresDSN        string   `yaml:"postgres_dsn"`
	RedisURL           string   `yaml:"redis_url"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	CatalogTimeoutMS   int      `yaml:"catalog_timeout_ms"`
	StoreTimeoutMS     int      `yaml:"store_timeout_ms"`
	MaxRetries         int      `yaml:"max_retries"`
	MigrationsDir      string   `yaml:"migrations_dir"`
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable with a default.
// Non-numeric values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// LoadConfig assembles the effective configuration.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:     "8080",
		RedisURL: "redis://localhost:6379/0",
		CORSAllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
		CatalogTimeoutMS: 250,
		StoreTimeoutMS:   250,
		MaxRetries:       DefaultMaxRetries,
		MigrationsDir:    "migrations",
	}

	if path := os.Getenv("GATE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.CatalogTimeoutMS = getEnvInt("CATALOG_TIMEOUT_MS", cfg.CatalogTimeoutMS)
	cfg.StoreTimeoutMS = getEnvInt("STORE_TIMEOUT_MS", cfg.StoreTimeoutMS)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)

	// RL_PG_DSN is the canonical catalog DSN; DATABASE_URL is kept as a
	// fallback for existing deployments.
	if dsn := os.Getenv("RL_PG_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
	} else if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.PostgresDSN = dsn
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		var parsed []string
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				parsed = append(parsed, origin)
			}
		}
		if len(parsed) > 0 {
			cfg.CORSAllowedOrigins = parsed
		}
	}

	return cfg, nil
}

// CatalogTimeout returns the per-operation catalog deadline.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}

// StoreTimeout returns the per-operation counting-store deadline.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}
