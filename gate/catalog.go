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
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultCatalogTimeout bounds each individual catalog query.
const DefaultCatalogTimeout = 250 * time.Millisecond

// Catalog is the read-only lookup surface over the policy catalog in
// Postgres. It resolves the opaque identifiers of a request context to
// catalog-internal ids and fetches the enabled policies applicable to
// them. The core never writes to the catalog.
//
// Mapping of request identifiers to catalog columns:
//
//	tenantId  -> tenant.name
//	userId    -> user_account.external_id (scoped by tenant)
//	apiKey    -> api_key.key_hash (revoked keys never resolve)
//	modelId   -> model.name
//	modelTier -> model_tier.name
type Catalog struct {
	db        *sql.DB
	opTimeout time.Duration
}

// NewCatalog creates a catalog adapter over an open database handle.
// A non-positive opTimeout falls back to DefaultCatalogTimeout.
func NewCatalog(db *sql.DB, opTimeout time.Duration) *Catalog {
	if opTimeout <= 0 {
		opTimeout = DefaultCatalogTimeout
	}
	return &Catalog{db: db, opTimeout: opTimeout}
}

// lookupID runs a single-row id query. A missing row is not an error:
// unresolved identifiers simply never match any scoped policy.
func (c *Catalog) lookupID(ctx context.Context, what, query string, args ...interface{}) (*int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	var id int64
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, what, err)
	}
	return &id, nil
}

// LookupTenant resolves a tenant name to its catalog id.
func (c *Catalog) LookupTenant(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	return c.lookupID(ctx, "lookup tenant",
		`SELECT id FROM tenant WHERE name = $1`, name)
}

// LookupUser resolves a user's external id within a tenant. Users are
// tenant-scoped: without a resolved tenant the user cannot resolve.
func (c *Catalog) LookupUser(ctx context.Context, tenantID *int64, externalID string) (*int64, error) {
	if tenantID == nil || externalID == "" {
		return nil, nil
	}
	return c.lookupID(ctx, "lookup user",
		`SELECT id FROM user_account WHERE tenant_id = $1 AND external_id = $2`,
		*tenantID, externalID)
}

// LookupAPIKey resolves an API key hash to its catalog id. Revoked keys
// never resolve, so API_KEY policies stop matching the moment a key is
// revoked.
func (c *Catalog) LookupAPIKey(ctx context.Context, keyHash string) (*int64, error) {
	if keyHash == "" {
		return nil, nil
	}
	return c.lookupID(ctx, "lookup api key",
		`SELECT id FROM api_key WHERE key_hash = $1 AND revoked = FALSE`, keyHash)
}

// LookupModel resolves a model name to its catalog id and the id of the
// tier the model belongs to.
func (c *Catalog) LookupModel(ctx context.Context, name string) (modelID, tierID *int64, err error) {
	if name == "" {
		return nil, nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	var id int64
	var tier sql.NullInt64
	err = c.db.QueryRowContext(ctx,
		`SELECT id, tier_id FROM model WHERE name = $1`, name).Scan(&id, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lookup model: %v", ErrCatalogUnavailable, err)
	}
	if tier.Valid {
		tierID = &tier.Int64
	}
	return &id, tierID, nil
}

// LookupTier resolves a tier name to its catalog id.
func (c *Catalog) LookupTier(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	return c.lookupID(ctx, "lookup model tier",
		`SELECT id FROM model_tier WHERE name = $1`, name)
}

// TierName returns the display name of a tier, or "" when the tier row
// no longer exists.
func (c *Catalog) TierName(ctx context.Context, tierID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	var name string
	err := c.db.QueryRowContext(ctx,
		`SELECT name FROM model_tier WHERE id = $1`, tierID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: lookup tier name: %v", ErrCatalogUnavailable, err)
	}
	return name, nil
}

// applicablePoliciesQuery selects every enabled policy whose scope
// predicate matches the resolved identifiers. NULL identifiers never
// match their predicate; GLOBAL matches unconditionally. The CASE rank
// establishes the resolver precedence, tie-broken by insertion order.
const applicablePoliciesQuery = `
SELECT id, scope, window_seconds, limit_value, enabled,
       tenant_id, user_id, api_key_id, model_id, model_tier_id
FROM rate_limit_policy
WHERE enabled = TRUE
  AND (
        scope = 'GLOBAL'
     OR (scope = 'TENANT'     AND tenant_id     = $1)
     OR (scope = 'API_KEY'    AND api_key_id    = $2)
     OR (scope = 'MODEL'      AND model_id      = $3)
     OR (scope = 'MODEL_TIER' AND model_tier_id = $4)
     OR (scope = 'USER_MODEL' AND user_id       = $5 AND model_id = $6)
  )
ORDER BY CASE scope
           WHEN 'USER_MODEL' THEN 6
           WHEN 'API_KEY'    THEN 5
           WHEN 'TENANT'     THEN 4
           WHEN 'MODEL'      THEN 3
           WHEN 'MODEL_TIER' THEN 2
           WHEN 'GLOBAL'     THEN 1
           ELSE 0
         END DESC, id ASC`

// ApplicablePolicies fetches the enabled policies matching the resolved
// identity, ordered by scope precedence descending then policy id
// ascending.
func (c *Catalog) ApplicablePolicies(ctx context.Context, id ResolvedIdentity) ([]Policy, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, applicablePoliciesQuery,
		nullableID(id.TenantID),
		nullableID(id.APIKeyID),
		nullableID(id.ModelID),
		nullableID(id.ModelTierID),
		nullableID(id.UserID),
		nullableID(id.ModelID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query policies: %v", ErrCatalogUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.Scope, &p.WindowSeconds, &p.LimitValue, &p.Enabled,
			&p.TenantID, &p.UserID, &p.APIKeyID, &p.ModelID, &p.ModelTierID); err != nil {
			return nil, fmt.Errorf("%w: scan policy: %v", ErrCatalogUnavailable, err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate policies: %v", ErrCatalogUnavailable, err)
	}
	return policies, nil
}

// nullableID converts an optional resolved id to a SQL parameter that is
// NULL when unresolved, so the scope predicate simply never fires.
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
