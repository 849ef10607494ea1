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
	"database/sql"
	"testing"
)

func validInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func TestScopePrecedence(t *testing.T) {
	ordered := []Scope{ScopeUserModel, ScopeAPIKey, ScopeTenant, ScopeModel, ScopeModelTier, ScopeGlobal}

	for i := 0; i < len(ordered)-1; i++ {
		if ordered[i].Precedence() <= ordered[i+1].Precedence() {
			t.Errorf("expected %s (%d) to outrank %s (%d)",
				ordered[i], ordered[i].Precedence(), ordered[i+1], ordered[i+1].Precedence())
		}
	}

	if Scope("BOGUS").Precedence() >= ScopeGlobal.Precedence() {
		t.Error("unknown scope must rank below GLOBAL")
	}
}

func TestIsValidScope(t *testing.T) {
	for _, s := range []Scope{ScopeGlobal, ScopeTenant, ScopeAPIKey, ScopeModel, ScopeModelTier, ScopeUserModel} {
		if !IsValidScope(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if IsValidScope("ORG") {
		t.Error("expected ORG to be invalid")
	}
}

func TestCounterKey(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   string
	}{
		{
			name:   "global",
			policy: Policy{ID: 1, Scope: ScopeGlobal},
			want:   "rl:global",
		},
		{
			name:   "tenant",
			policy: Policy{ID: 2, Scope: ScopeTenant, TenantID: validInt64(7)},
			want:   "rl:tenant:7",
		},
		{
			name:   "api key",
			policy: Policy{ID: 3, Scope: ScopeAPIKey, APIKeyID: validInt64(12)},
			want:   "rl:apikey:12",
		},
		{
			name:   "model",
			policy: Policy{ID: 4, Scope: ScopeModel, ModelID: validInt64(3)},
			want:   "rl:model:3",
		},
		{
			name:   "model tier",
			policy: Policy{ID: 5, Scope: ScopeModelTier, ModelTierID: validInt64(9)},
			want:   "rl:modeltier:9",
		},
		{
			name:   "user model",
			policy: Policy{ID: 6, Scope: ScopeUserModel, UserID: validInt64(4), ModelID: validInt64(3)},
			want:   "rl:user:4:model:3",
		},
		{
			name:   "unknown scope falls back to policy id",
			policy: Policy{ID: 99, Scope: "BOGUS"},
			want:   "rl:unknown:99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterKey(&tt.policy); got != tt.want {
				t.Errorf("counterKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Two policies on the same scope instance must share one counter even
// when their windows differ.
func TestCounterKeySharedAcrossWindows(t *testing.T) {
	a := Policy{ID: 1, Scope: ScopeTenant, TenantID: validInt64(7), WindowSeconds: 60}
	b := Policy{ID: 2, Scope: ScopeTenant, TenantID: validInt64(7), WindowSeconds: 3600}

	if counterKey(&a) != counterKey(&b) {
		t.Errorf("expected shared counter key, got %q and %q", counterKey(&a), counterKey(&b))
	}
}
