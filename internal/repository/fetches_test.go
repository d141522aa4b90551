package repository

import (
	"testing"
	"time"

	"github.com/jackwood1/woodfamily-ai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStateRepository_GetMissingReturnsNil(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	state, err := db.FetchStates.Get(ctx, "test_never_fetched")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFetchStateRepository_UpsertRoundTrip(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	state := &models.FetchState{
		SourceKey:   "test_fetch_state",
		LastFetchAt: fetchedAt,
		StatsURL:    models.NullStr("https://example.com/averages.pdf"),
		FilePath:    models.NullStr("data/cache/test_fetch_state.pdf"),
	}
	require.NoError(t, db.FetchStates.Upsert(ctx, state))

	loaded, err := db.FetchStates.Get(ctx, "test_fetch_state")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "https://example.com/averages.pdf", loaded.StatsURL.String)
	assert.False(t, loaded.ScheduleURL.Valid)
	assert.True(t, loaded.LastFetchAt.Equal(fetchedAt))

	// A later fetch replaces the row in place.
	state.LastFetchAt = fetchedAt.Add(time.Hour)
	state.StatsURL = models.NullStr("https://example.com/averages_v2.pdf")
	require.NoError(t, db.FetchStates.Upsert(ctx, state))

	loaded, err = db.FetchStates.Get(ctx, "test_fetch_state")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "https://example.com/averages_v2.pdf", loaded.StatsURL.String)
	assert.True(t, loaded.LastFetchAt.After(fetchedAt))
}

func TestHintRepository_CRUD(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	require.NoError(t, db.Hints.Upsert(ctx, models.HintTeam, "test-hint-strikers"))
	require.NoError(t, db.Hints.Upsert(ctx, models.HintTeam, "test-hint-strikers"))

	hints, err := db.Hints.List(ctx, models.HintTeam)
	require.NoError(t, err)
	var found int
	for _, h := range hints {
		if h.Value == "test-hint-strikers" {
			found++
		}
	}
	assert.Equal(t, 1, found, "Upsert should keep one row per hint")

	removed, err := db.Hints.Delete(ctx, models.HintTeam, "test-hint-strikers")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.Hints.Delete(ctx, models.HintTeam, "test-hint-strikers")
	require.NoError(t, err)
	assert.False(t, removed)
}
