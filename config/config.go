// Copyright 2025 Cubedeck
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

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the datasource admin service.
type Config struct {
	Version  string         `yaml:"version"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           string   `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// AuthConfig controls caller authentication. JWTSecret may reference an AWS
// Secrets Manager ARN via SecretARN instead of an inline value.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret,omitempty"`
	SecretARN string `yaml:"secret_arn,omitempty"`
}

// RegistryConfig selects the descriptor registry backend.
// Backend is one of: memory (default), postgres, mysql.
type RegistryConfig struct {
	Backend string `yaml:"backend,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
}

// StoreConfig selects the file store backend.
// Backend is one of: local (default), s3, azureblob, gcs.
type StoreConfig struct {
	Backend     string            `yaml:"backend,omitempty"`
	Root        string            `yaml:"root,omitempty"`   // local: directory; cloud: key prefix
	Bucket      string            `yaml:"bucket,omitempty"` // s3/gcs bucket, azure container
	Options     map[string]string `yaml:"options,omitempty"`
	Credentials map[string]string `yaml:"credentials,omitempty"`
}

// RedisConfig enables Redis-backed rate limiting when URL is set.
type RedisConfig struct {
	URL            string `yaml:"url,omitempty"`
	LimitPerMinute int    `yaml:"limit_per_minute,omitempty"`
}

// Load reads a YAML config file, expanding ${VAR} and ${VAR:-default}
// environment references before parsing.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// FromEnv builds a configuration purely from environment variables, the
// path taken when no config file is supplied.
func FromEnv() *Config {
	cfg := &Config{
		Version: "1.0",
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("OLAP_ADMIN_JWT_SECRET"),
			SecretARN: os.Getenv("OLAP_ADMIN_JWT_SECRET_ARN"),
		},
		Registry: RegistryConfig{
			Backend: getEnv("OLAP_REGISTRY_BACKEND", "memory"),
			DSN:     os.Getenv("OLAP_REGISTRY_DSN"),
		},
		Store: StoreConfig{
			Backend: getEnv("OLAP_STORE_BACKEND", "local"),
			Root:    getEnv("OLAP_STORE_ROOT", "/var/lib/cubedeck/olap-servers"),
			Bucket:  os.Getenv("OLAP_STORE_BUCKET"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Validate checks the structure of a parsed config.
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config file must specify a version")
	}

	if cfg.Registry.Backend != "" {
		validRegistries := map[string]bool{
			"memory":   true,
			"postgres": true,
			"mysql":    true,
		}
		if !validRegistries[cfg.Registry.Backend] {
			return fmt.Errorf("invalid registry backend '%s'", cfg.Registry.Backend)
		}
		if cfg.Registry.Backend != "memory" && cfg.Registry.DSN == "" {
			return fmt.Errorf("registry backend '%s' requires a dsn", cfg.Registry.Backend)
		}
	}

	if cfg.Store.Backend != "" {
		validStores := map[string]bool{
			"local":     true,
			"s3":        true,
			"azureblob": true,
			"gcs":       true,
		}
		if !validStores[cfg.Store.Backend] {
			return fmt.Errorf("invalid store backend '%s'", cfg.Store.Backend)
		}
		if cfg.Store.Backend != "local" && cfg.Store.Bucket == "" {
			return fmt.Errorf("store backend '%s' requires a bucket", cfg.Store.Backend)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = "memory"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "local"
	}
	if cfg.Store.Root == "" && cfg.Store.Backend == "local" {
		cfg.Store.Root = "/var/lib/cubedeck/olap-servers"
	}
	if cfg.Redis.LimitPerMinute == 0 {
		cfg.Redis.LimitPerMinute = 120
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string.
// Supports both ${VAR_NAME} and $VAR_NAME syntax plus ${VAR_NAME:-default}.
// Undefined variables expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultVal
	})
}
