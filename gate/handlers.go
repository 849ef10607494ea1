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
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// handleHealth answers liveness probes.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"service":   "rategate-gate",
		"timestamp": time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// handleCheck is the admission endpoint: it parses and validates the
// request context, runs the decision, and maps error kinds to status
// codes. A rate-limit rejection is a normal 200 decision, not an error.
func (s *Service) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestsTotal.WithLabelValues("check", "422").Inc()
		sendError(w, "Invalid request body: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	decision, err := s.Decide(r.Context(), &req)
	if err != nil {
		status := statusForError(err)
		requestsTotal.WithLabelValues("check", strconv.Itoa(status)).Inc()
		s.log.Error(req.TenantID, requestID, "decision failed", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
		sendError(w, errorMessage(err), status)
		return
	}

	decisionDuration.Observe(float64(time.Since(start).Milliseconds()))
	decisionsTotal.WithLabelValues(strconv.FormatBool(decision.Allowed)).Inc()
	requestsTotal.WithLabelValues("check", "200").Inc()

	s.log.InfoWithDuration(req.TenantID, requestID, "decision made",
		float64(time.Since(start).Microseconds())/1000.0, map[string]interface{}{
			"allowed": decision.Allowed,
			"limit":   decision.Limit,
			"count":   decision.Count,
		})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(decision); err != nil {
		log.Printf("Error encoding decision response: %v", err)
	}
}

// handleStatus reports per-limit usage for a context without consuming
// an admission. The context comes from query parameters.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	q := r.URL.Query()
	req := CheckRequest{
		UserID:    q.Get("userId"),
		ModelID:   q.Get("modelId"),
		TenantID:  q.Get("tenantId"),
		APIKey:    q.Get("apiKey"),
		ModelTier: q.Get("modelTier"),
	}

	statuses, err := s.Status(r.Context(), &req)
	if err != nil {
		status := statusForError(err)
		requestsTotal.WithLabelValues("status", strconv.Itoa(status)).Inc()
		s.log.Error(req.TenantID, requestID, "status lookup failed", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
		sendError(w, errorMessage(err), status)
		return
	}

	requestsTotal.WithLabelValues("status", "200").Inc()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"limits": statuses}); err != nil {
		log.Printf("Error encoding status response: %v", err)
	}
}

// statusForError maps the sentinel error kinds to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoPolicy), errors.Is(err, ErrCatalogUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrStoreContention):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps the user-visible text stable for the catalog
// failure modes and passes the rest through.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrCatalogUnavailable):
		return fmt.Sprintf("Policy resolve error: %v", err)
	case errors.Is(err, ErrNoPolicy):
		return "No policy resolved"
	default:
		return err.Error()
	}
}

// sendError sends a JSON error response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

// RegisterHandlers registers the decision endpoints on the router.
func (s *Service) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/health", handleHealth).Methods("GET")
	r.HandleFunc("/rate-limit/check", s.handleCheck).Methods("POST")
	r.HandleFunc("/rate-limit/status", s.handleStatus).Methods("GET")
	log.Println("✅ Rate limit endpoints registered: /rate-limit/check, /rate-limit/status")
}
