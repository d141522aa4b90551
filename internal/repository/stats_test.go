package repository

import (
	"testing"

	"github.com/jackwood1/woodfamily-ai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statRow(team, player string, average int) *models.StatRecord {
	return &models.StatRecord{
		TeamName:   models.NullStr(team),
		PlayerName: models.NullStr(player),
		Average:    models.NullInt(&average),
		Raw:        []byte(`{}`),
	}
}

func TestStatRepository_ReplaceForSource(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	sourceKey := "test_replace_averages"
	require.NoError(t, db.Stats.ReplaceForSource(ctx, sourceKey, []*models.StatRecord{
		statRow("Beer Frame", "Gino", 156),
		statRow("Beer Frame", "Maria", 204),
	}))

	records, err := db.Stats.List(ctx, sourceKey, "", "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// A refresh replaces the whole source, never appends.
	require.NoError(t, db.Stats.ReplaceForSource(ctx, sourceKey, []*models.StatRecord{
		statRow("Beer Frame", "Gino", 158),
	}))

	records, err = db.Stats.List(ctx, sourceKey, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gino", records[0].PlayerName.String)
	assert.Equal(t, int32(158), records[0].Average.Int32)

	require.NoError(t, db.Stats.ReplaceForSource(ctx, sourceKey, nil))
	count, err := db.Stats.CountForSource(ctx, sourceKey)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStatRepository_ListExactMatchIgnoresCaseAndSpacing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	sourceKey := "test_exact_averages"
	require.NoError(t, db.Stats.ReplaceForSource(ctx, sourceKey, []*models.StatRecord{
		statRow("Beer Frame", "Gino", 156),
		statRow("Split Happens", "Dana", 171),
	}))

	records, err := db.Stats.List(ctx, sourceKey, "  BEER frame ", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Beer Frame", records[0].TeamName.String)

	records, err = db.Stats.List(ctx, sourceKey, "", "gino")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gino", records[0].PlayerName.String)
}

func TestStatRepository_ListFallsBackToSubstringMatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	sourceKey := "test_fuzzy_averages"
	require.NoError(t, db.Stats.ReplaceForSource(ctx, sourceKey, []*models.StatRecord{
		statRow("Beer Frame", "Gino Moretti", 156),
	}))

	// No exact match for the partial name, substring pass finds it.
	records, err := db.Stats.List(ctx, sourceKey, "", "moretti")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gino Moretti", records[0].PlayerName.String)

	records, err = db.Stats.List(ctx, sourceKey, "frame", "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = db.Stats.List(ctx, sourceKey, "", "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStatRepository_SourcesAreIsolated(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	require.NoError(t, db.Stats.ReplaceForSource(ctx, "test_iso_a", []*models.StatRecord{
		statRow("Beer Frame", "Gino", 156),
	}))
	require.NoError(t, db.Stats.ReplaceForSource(ctx, "test_iso_b", []*models.StatRecord{
		statRow("Pin Pals", "Sam", 180),
	}))

	require.NoError(t, db.Stats.ReplaceForSource(ctx, "test_iso_a", nil))

	records, err := db.Stats.List(ctx, "test_iso_b", "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Sam", records[0].PlayerName.String)
}
