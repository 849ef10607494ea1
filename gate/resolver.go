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
	"context"
	"fmt"
	"strings"
)

// ResolvedIdentity holds the catalog-internal ids a request context
// resolved to. A nil field means the corresponding scope can never
// match for this request.
type ResolvedIdentity struct {
	TenantID    *int64
	UserID      *int64
	APIKeyID    *int64
	ModelID     *int64
	ModelTierID *int64
}

// Resolver maps a request context to the ordered list of effective
// limits that apply to it. The output order (scope precedence
// descending, policy id ascending) is the resolver precedence consumed
// by the decision composer.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over a catalog adapter.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve translates the request context into effective limits.
//
// Unknown tenant/user/model identifiers are not errors: they leave the
// corresponding id unresolved, so scoped policies simply do not match.
// A request may still be governed by a GLOBAL policy alone. Catalog
// failures surface as ErrCatalogUnavailable; an empty result is left to
// the composer, which reports ErrNoPolicy.
func (r *Resolver) Resolve(ctx context.Context, req *CheckRequest) ([]EffectiveLimit, error) {
	id, err := r.resolveIdentity(ctx, req)
	if err != nil {
		return nil, err
	}

	policies, err := r.catalog.ApplicablePolicies(ctx, id)
	if err != nil {
		return nil, err
	}

	limits := make([]EffectiveLimit, 0, len(policies))
	for i := range policies {
		p := &policies[i]
		label, err := r.labelFor(ctx, p)
		if err != nil {
			return nil, err
		}
		limits = append(limits, EffectiveLimit{
			Key:           counterKey(p),
			WindowSeconds: p.WindowSeconds,
			Limit:         p.LimitValue,
			Label:         label,
			Scope:         p.Scope,
		})
	}
	return limits, nil
}

// resolveIdentity maps the opaque request identifiers to catalog ids.
// The explicit modelTier hint takes precedence over the tier derived
// from the model row.
func (r *Resolver) resolveIdentity(ctx context.Context, req *CheckRequest) (ResolvedIdentity, error) {
	var id ResolvedIdentity
	var err error

	if id.TenantID, err = r.catalog.LookupTenant(ctx, req.TenantID); err != nil {
		return id, err
	}
	if id.UserID, err = r.catalog.LookupUser(ctx, id.TenantID, req.UserID); err != nil {
		return id, err
	}
	if id.APIKeyID, err = r.catalog.LookupAPIKey(ctx, req.APIKey); err != nil {
		return id, err
	}

	var tierFromModel *int64
	if id.ModelID, tierFromModel, err = r.catalog.LookupModel(ctx, req.ModelID); err != nil {
		return id, err
	}

	explicitTier, err := r.catalog.LookupTier(ctx, req.ModelTier)
	if err != nil {
		return id, err
	}
	if explicitTier != nil {
		id.ModelTierID = explicitTier
	} else {
		id.ModelTierID = tierFromModel
	}
	return id, nil
}

// labelFor derives the human-readable tag for a policy. The default is
// the scope name; MODEL_TIER policies are enriched to "{NAME}_TIER"
// when the tier name is still resolvable.
func (r *Resolver) labelFor(ctx context.Context, p *Policy) (string, error) {
	if p.Scope == ScopeModelTier && p.ModelTierID.Valid {
		name, err := r.catalog.TierName(ctx, p.ModelTierID.Int64)
		if err != nil {
			return "", err
		}
		if name != "" {
			return fmt.Sprintf("%s_TIER", strings.ToUpper(name)), nil
		}
	}
	return string(p.Scope), nil
}
