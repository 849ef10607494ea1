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

import "database/sql"

// CheckRequest is the request context a caller submits for an admission
// decision. UserID and ModelID are required; the remaining identifiers
// are optional and simply fail to resolve some scopes when absent.
// All identifiers are opaque to the service.
type CheckRequest struct {
	UserID    string `json:"userId"`
	ModelID   string `json:"modelId"`
	TenantID  string `json:"tenantId,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	ModelTier string `json:"modelTier,omitempty"`
}

// Policy is one immutable catalog record. The scope determines which of
// the optional identifier columns must be set for the record to match a
// request context.
type Policy struct {
	ID            int64
	Scope         Scope
	WindowSeconds int
	LimitValue    int
	Enabled       bool
	TenantID      sql.NullInt64
	UserID        sql.NullInt64
	APIKeyID      sql.NullInt64
	ModelID       sql.NullInt64
	ModelTierID   sql.NullInt64
}

// EffectiveLimit is one concrete constraint derived from a catalog
// policy for a specific request context. Key is the counting-store key
// shared by every policy on the same scope instance.
type EffectiveLimit struct {
	Key           string
	WindowSeconds int
	Limit         int
	Label         string
	Scope         Scope
}

// FulfilledLimit reports one successfully passed effective limit in a
// positive decision.
type FulfilledLimit struct {
	Label         string `json:"label"`
	Key           string `json:"key"`
	Limit         int    `json:"limit"`
	Count         int    `json:"count"`
	WindowSeconds int    `json:"windowSeconds"`
}

// Decision is the final admission verdict for one request context.
// On reject the top-level fields describe the primary (most specific)
// violated limit and Cause is set. On admit they describe the tightest
// binding limit and Fulfilled lists every passed limit in resolver order.
type Decision struct {
	Allowed       bool             `json:"allowed"`
	Limit         int              `json:"limit"`
	Count         int              `json:"count"`
	WindowSeconds int              `json:"windowSeconds"`
	Cause         string           `json:"cause,omitempty"`
	Fulfilled     []FulfilledLimit `json:"fulfilled,omitempty"`
}

// LimitStatus reports the current in-window usage of one effective limit
// without consuming an event.
type LimitStatus struct {
	Label         string `json:"label"`
	Key           string `json:"key"`
	Limit         int    `json:"limit"`
	Count         int    `json:"count"`
	WindowSeconds int    `json:"windowSeconds"`
	Remaining     int    `json:"remaining"`
}
