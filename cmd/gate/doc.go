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

/*
Command gate runs the RateGate decision service.

For each POST /rate-limit/check request the service answers whether the
request should be admitted, and if not, which policy was violated. On
admit it also reports the tightest binding constraint and every
fulfilled limit.

# Usage

	gate

# Environment Variables

Required:
  - RL_PG_DSN: PostgreSQL policy catalog connection string
    (DATABASE_URL is accepted as a fallback)

Optional:
  - PORT: HTTP server port (default: 8080)
  - REDIS_URL: counting store endpoint (default: redis://localhost:6379/0)
  - CORS_ALLOWED_ORIGINS: comma-separated CORS allow-list
  - CATALOG_TIMEOUT_MS / STORE_TIMEOUT_MS: per-operation deadlines
  - MAX_RETRIES: optimistic transaction retry budget (default: 5)
  - MIGRATIONS_DIR: catalog migration directory (default: migrations)
  - GATE_CONFIG: optional YAML config file, overridden by env vars
  - LOG_LEVEL: DEBUG, INFO, WARN or ERROR (default: INFO)

# Endpoints

  - GET  /health: liveness probe
  - POST /rate-limit/check: admission decision (consumes one event)
  - GET  /rate-limit/status: per-limit usage without consuming
  - GET  /metrics: Prometheus metrics
*/
package main
