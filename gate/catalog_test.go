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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCatalog(db, time.Second), mock
}

func TestLookupTenant(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM tenant").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := catalog.LookupTenant(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	// Unknown tenant is not an error, it just fails to resolve.
	mock.ExpectQuery("SELECT id FROM tenant").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err = catalog.LookupTenant(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, id)

	// Empty name short-circuits without touching the database.
	id, err = catalog.LookupTenant(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupUserRequiresTenant(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	// Without a resolved tenant the user can never resolve; no query.
	id, err := catalog.LookupUser(ctx, nil, "u-1")
	require.NoError(t, err)
	assert.Nil(t, id)

	tenantID := int64(7)
	mock.ExpectQuery("SELECT id FROM user_account").
		WithArgs(tenantID, "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	id, err = catalog.LookupUser(ctx, &tenantID, "u-1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(4), *id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupAPIKeySkipsRevoked(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	// The query itself filters revoked keys, so a revoked key comes
	// back as no rows.
	mock.ExpectQuery("SELECT id FROM api_key").
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := catalog.LookupAPIKey(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupModel(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, tier_id FROM model").
		WithArgs("gpt-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tier_id"}).AddRow(int64(3), int64(9)))

	modelID, tierID, err := catalog.LookupModel(ctx, "gpt-x")
	require.NoError(t, err)
	require.NotNil(t, modelID)
	require.NotNil(t, tierID)
	assert.Equal(t, int64(3), *modelID)
	assert.Equal(t, int64(9), *tierID)

	// Model without a tier.
	mock.ExpectQuery("SELECT id, tier_id FROM model").
		WithArgs("tierless").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tier_id"}).AddRow(int64(5), nil))

	modelID, tierID, err = catalog.LookupModel(ctx, "tierless")
	require.NoError(t, err)
	require.NotNil(t, modelID)
	assert.Nil(t, tierID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTierName(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT name FROM model_tier").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("premium"))

	name, err := catalog.TierName(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "premium", name)

	// Deleted tier: no label enrichment, no error.
	mock.ExpectQuery("SELECT name FROM model_tier").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	name, err = catalog.TierName(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "", name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicablePolicies(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{
		"id", "scope", "window_seconds", "limit_value", "enabled",
		"tenant_id", "user_id", "api_key_id", "model_id", "model_tier_id",
	}).
		AddRow(int64(10), "USER_MODEL", 60, 5, true, nil, int64(4), nil, int64(3), nil).
		AddRow(int64(11), "MODEL", 60, 100, true, nil, nil, nil, int64(3), nil).
		AddRow(int64(13), "GLOBAL", 60, 50, true, nil, nil, nil, nil, nil)

	mock.ExpectQuery("FROM rate_limit_policy").WillReturnRows(rows)

	userID, modelID := int64(4), int64(3)
	policies, err := catalog.ApplicablePolicies(ctx, ResolvedIdentity{
		UserID:  &userID,
		ModelID: &modelID,
	})
	require.NoError(t, err)
	require.Len(t, policies, 3)

	// Order is the catalog's: precedence desc, id asc.
	assert.Equal(t, ScopeUserModel, policies[0].Scope)
	assert.Equal(t, ScopeModel, policies[1].Scope)
	assert.Equal(t, ScopeGlobal, policies[2].Scope)
	assert.Equal(t, int64(10), policies[0].ID)
	assert.Equal(t, 5, policies[0].LimitValue)
	assert.Equal(t, 60, policies[0].WindowSeconds)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogErrorsAreWrapped(t *testing.T) {
	catalog, mock := newTestCatalog(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM tenant").
		WillReturnError(errors.New("connection refused"))

	_, err := catalog.LookupTenant(ctx, "acme")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	mock.ExpectQuery("FROM rate_limit_policy").
		WillReturnError(errors.New("connection refused"))

	_, err = catalog.ApplicablePolicies(ctx, ResolvedIdentity{})
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
