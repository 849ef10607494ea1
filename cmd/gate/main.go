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

// Package main is the entry point for the RateGate gate service.
//
// The gate is the rate limiting decision service of an AI inference
// gateway: it resolves the rate limit policies applicable to a request
// context and enforces them against a shared sliding-window counter.
//
// Usage:
//
//	./gate
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	RL_PG_DSN - PostgreSQL policy catalog connection string
//	REDIS_URL - counting store endpoint (default: redis://localhost:6379/0)
//	CORS_ALLOWED_ORIGINS - comma-separated CORS allow-list
package main

import (
	"rategate/platform/gate"
)

func main() {
	gate.Run()
}
