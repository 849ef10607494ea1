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

// Package gate implements the RateGate decision service: a multi-policy
// rate limiting gateway for AI inference traffic. For each request
// context it resolves the applicable catalog policies, enforces each of
// them against a shared Redis sliding-window counter, and answers
// whether the request is admitted and which policy is binding.
package gate

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"rategate/platform/shared/logger"
)

// connectCatalogDB opens the catalog database and verifies connectivity
// with retries. Container DNS can take a few seconds to settle after
// startup, so failing on the first ping would be premature.
func connectCatalogDB(dsn string) (*sql.DB, error) {
	const maxAttempts = 5

	var db *sql.DB
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		if attempt < maxAttempts {
			backoff := time.Duration(attempt*2) * time.Second
			log.Printf("⚠️  Catalog connection failed (attempt %d/%d): %v", attempt, maxAttempts, err)
			log.Printf("   Retrying in %v...", backoff)
			time.Sleep(backoff)
		}
	}
	return nil, err
}

// Run is the exported entry point for the gate service. It wires the
// catalog, the counting store and the HTTP surface, then serves until
// the process is stopped.
func Run() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	svcLogger := logger.New("rategate-gate")

	if cfg.PostgresDSN == "" {
		log.Fatal("RL_PG_DSN (or DATABASE_URL) must be set to the policy catalog DSN")
	}

	catalogDB, err := connectCatalogDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to policy catalog: %v", err)
	}
	log.Println("✅ Policy catalog connected")

	if err := runMigrations(catalogDB, cfg.MigrationsDir); err != nil {
		log.Fatalf("Catalog migrations failed: %v", err)
	}

	store, err := ConnectStore(cfg.RedisURL, cfg.StoreTimeout())
	if err != nil {
		log.Fatalf("Failed to connect to counting store: %v", err)
	}
	log.Printf("✅ Counting store connected: %s", cfg.RedisURL)

	catalog := NewCatalog(catalogDB, cfg.CatalogTimeout())
	resolver := NewResolver(catalog)
	limiter := NewSlidingWindowLimiter(store, cfg.MaxRetries)
	service := NewService(resolver, limiter, svcLogger)

	router := mux.NewRouter()
	service.RegisterHandlers(router)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := corsMiddleware.Handler(router)
	log.Printf("🚀 RateGate gate starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
