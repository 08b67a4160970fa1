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

package olapadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"cubedeck/platform/config"
	"cubedeck/platform/registry"
	"cubedeck/platform/store"
	"cubedeck/platform/store/azureblob"
	"cubedeck/platform/store/gcs"
	"cubedeck/platform/store/local"
	s3store "cubedeck/platform/store/s3"
)

// Run is the exported entry point for the datasource admin service. It
// loads configuration, builds the registry and store backends, wires the
// HTTP routes, and blocks serving until shut down.
//
// When configFile is empty the configuration comes from the environment.
func Run(configFile string) {
	log.Println("Starting Cubedeck OLAP datasource admin...")

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	secret, err := resolveJWTSecret(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to resolve JWT secret: %v", err)
	}
	if secret == "" {
		log.Println("WARNING: no JWT secret configured; all callers are anonymous")
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize registry backend: %v", err)
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store backend: %v", err)
	}

	limiter := buildRateLimiter(cfg)

	service := NewService(reg, st)
	handlers := NewDatasourceHandlers(service, NewAuthenticator([]byte(secret)), limiter)

	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")
	handlers.RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("OLAP datasource admin listening on port %s (registry: %s, store: %s)",
		cfg.Server.Port, cfg.Registry.Backend, cfg.Store.Backend)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, c.Handler(r)))
}

func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.FromEnv(), nil
}

// resolveJWTSecret returns the signing secret, fetching it from AWS Secrets
// Manager when the config references an ARN instead of an inline value.
func resolveJWTSecret(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Auth.SecretARN == "" {
		return cfg.Auth.JWTSecret, nil
	}

	sm, err := config.NewAWSSecretsManager(ctx, config.AWSSecretsManagerOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create secrets manager client: %w", err)
	}
	secret, err := sm.GetSecret(ctx, cfg.Auth.SecretARN)
	if err != nil {
		return "", err
	}
	if v, ok := secret["jwt_secret"]; ok {
		return v, nil
	}
	if v, ok := secret["value"]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %s holds neither 'jwt_secret' nor 'value'", cfg.Auth.SecretARN)
}

func buildRegistry(cfg *config.Config) (registry.Registry, error) {
	switch cfg.Registry.Backend {
	case "", "memory":
		return registry.NewInMemory(), nil
	case "postgres":
		return registry.NewPostgreSQLStorage(cfg.Registry.DSN)
	case "mysql":
		return registry.NewMySQLStorage(cfg.Registry.DSN)
	default:
		return nil, fmt.Errorf("unknown registry backend: %s", cfg.Registry.Backend)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	opt := func(key string) string { return cfg.Store.Options[key] }
	cred := func(key string) string { return cfg.Store.Credentials[key] }

	switch cfg.Store.Backend {
	case "", "local":
		return local.New(cfg.Store.Root)
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Bucket:          cfg.Store.Bucket,
			Prefix:          cfg.Store.Root,
			Region:          opt("region"),
			Endpoint:        opt("endpoint"),
			ForcePathStyle:  opt("force_path_style") == "true",
			AccessKeyID:     cred("access_key_id"),
			SecretAccessKey: cred("secret_access_key"),
			SessionToken:    cred("session_token"),
		})
	case "azureblob":
		return azureblob.New(ctx, azureblob.Options{
			AccountName:        opt("account_name"),
			Container:          cfg.Store.Bucket,
			Prefix:             cfg.Store.Root,
			AccountKey:         cred("account_key"),
			ConnectionString:   cred("connection_string"),
			UseManagedIdentity: opt("use_managed_identity") == "true",
		})
	case "gcs":
		return gcs.New(ctx, gcs.Options{
			Bucket:          cfg.Store.Bucket,
			Prefix:          cfg.Store.Root,
			CredentialsFile: cred("credentials_file"),
			CredentialsJSON: cred("credentials_json"),
			Endpoint:        opt("endpoint"),
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// buildRateLimiter prefers Redis when a URL is configured so the limit holds
// across replicas, falling back to the in-memory limiter when the connection
// fails.
func buildRateLimiter(cfg *config.Config) RateLimiter {
	if cfg.Redis.URL == "" {
		return NewMemoryRateLimiter(cfg.Redis.LimitPerMinute)
	}
	limiter, err := NewRedisRateLimiter(cfg.Redis.URL, cfg.Redis.LimitPerMinute)
	if err != nil {
		log.Printf("WARNING: Redis rate limiter unavailable (%v), using in-memory limiter", err)
		return NewMemoryRateLimiter(cfg.Redis.LimitPerMinute)
	}
	log.Printf("Redis rate limiter connected: %s", cfg.Redis.URL)
	return limiter
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"service":   "olap-datasource-admin",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
