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

import "fmt"

// Scope identifies the category of identity a rate limit policy is
// enforced against. Scopes form a closed set with a fixed precedence:
// a higher precedence means a more specific scope.
type Scope string

const (
	// ScopeUserModel limits a single user on a single model.
	ScopeUserModel Scope = "USER_MODEL"

	// ScopeAPIKey limits all traffic presented under one API key.
	ScopeAPIKey Scope = "API_KEY"

	// ScopeTenant limits all traffic of a tenant.
	ScopeTenant Scope = "TENANT"

	// ScopeModel limits all traffic targeting a model.
	ScopeModel Scope = "MODEL"

	// ScopeModelTier limits all traffic targeting a pricing/capacity tier.
	ScopeModelTier Scope = "MODEL_TIER"

	// ScopeGlobal limits all traffic through the gateway.
	ScopeGlobal Scope = "GLOBAL"
)

// scopePrecedence orders scopes by specificity (higher = more specific).
var scopePrecedence = map[Scope]int{
	ScopeUserModel: 6,
	ScopeAPIKey:    5,
	ScopeTenant:    4,
	ScopeModel:     3,
	ScopeModelTier: 2,
	ScopeGlobal:    1,
}

// Precedence returns the specificity rank of the scope. Unknown scopes
// rank below GLOBAL so a malformed catalog row can never shadow a real
// policy.
func (s Scope) Precedence() int {
	return scopePrecedence[s]
}

// IsValidScope reports whether s is one of the closed scope set.
func IsValidScope(s Scope) bool {
	_, ok := scopePrecedence[s]
	return ok
}

// counterKey derives the deterministic counting-store key for a policy.
// The key identifies the scope instance, not the policy record: two
// policies with different windows on the same scope instance share one
// counter.
func counterKey(p *Policy) string {
	switch p.Scope {
	case ScopeGlobal:
		return "rl:global"
	case ScopeTenant:
		return fmt.Sprintf("rl:tenant:%d", p.TenantID.Int64)
	case ScopeAPIKey:
		return fmt.Sprintf("rl:apikey:%d", p.APIKeyID.Int64)
	case ScopeModel:
		return fmt.Sprintf("rl:model:%d", p.ModelID.Int64)
	case ScopeModelTier:
		return fmt.Sprintf("rl:modeltier:%d", p.ModelTierID.Int64)
	case ScopeUserModel:
		return fmt.Sprintf("rl:user:%d:model:%d", p.UserID.Int64, p.ModelID.Int64)
	default:
		// Should not happen: scopes are validated when rows are scanned.
		return fmt.Sprintf("rl:unknown:%d", p.ID)
	}
}
