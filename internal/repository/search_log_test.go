//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/pagination"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchLogRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc)

	repo := NewSearchLogRepository(pool)
	base := time.Now().UTC().Truncate(time.Microsecond)

	id, err := repo.CreateSearchLog(ctx, service.SearchLogEntry{
		Scope:       domain.ScopeLinkedIn,
		Query:       `"Acme" site:linkedin.com/company/`,
		Outcome:     domain.OutcomeFound,
		ResultCount: 10,
		FirstLink:   "https://linkedin.com/company/acme",
		DurationMs:  120,
		CreatedAt:   base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = repo.CreateSearchLog(ctx, service.SearchLogEntry{
		Scope:     domain.ScopeWeb,
		Query:     "acme",
		Outcome:   domain.OutcomeFailed,
		Error:     "search api returned status 403",
		CreatedAt: base.Add(time.Second),
	})
	require.NoError(t, err)

	page, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)
	entries := page.Items

	assert.Equal(t, domain.ScopeWeb, entries[0].Scope)
	assert.Equal(t, domain.OutcomeFailed, entries[0].Outcome)
	assert.Empty(t, entries[0].FirstLink)
	assert.Equal(t, "search api returned status 403", entries[0].Error)

	assert.Equal(t, domain.ScopeLinkedIn, entries[1].Scope)
	assert.Equal(t, 10, entries[1].ResultCount)
	assert.Equal(t, "https://linkedin.com/company/acme", entries[1].FirstLink)
	assert.True(t, base.Equal(entries[1].CreatedAt))
}

func TestSearchLogRepository_ListPages(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc)

	repo := NewSearchLogRepository(pool)
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		_, err := repo.CreateSearchLog(ctx, service.SearchLogEntry{
			Scope:     domain.ScopeWeb,
			Query:     fmt.Sprintf("query %d", i),
			Outcome:   domain.OutcomeNotFound,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	first, err := repo.List(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "query 4", first.Items[0].Query)
	assert.Equal(t, "query 3", first.Items[1].Query)

	second, err := repo.List(ctx, first.Cursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "query 2", second.Items[0].Query)
	assert.Equal(t, "query 1", second.Items[1].Query)

	third, err := repo.List(ctx, second.Cursor, 2)
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Equal(t, "query 0", third.Items[0].Query)
	assert.False(t, third.HasMore)

	_, err = repo.List(ctx, "not-a-cursor!", 2)
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestSearchLogRepository_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc)

	// second run sees ErrNoChange
	_ = testutil.NewTestPool(ctx, t, pc)

	require.NoError(t, testutil.ResetSearchLogs(ctx, pool))
	page, err := NewSearchLogRepository(pool).List(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
