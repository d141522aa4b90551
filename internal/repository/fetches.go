package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
	"github.com/jackwood1/woodfamily-ai/internal/models"

	"github.com/jackc/pgx/v5"
)

// FetchStateRepository tracks the last successful fetch per source key.
type FetchStateRepository struct {
	db *Database
}

// Get returns the fetch state for a source key, or nil when the source has
// never been fetched.
func (r *FetchStateRepository) Get(ctx context.Context, sourceKey string) (*models.FetchState, error) {
	query := `
		SELECT source_key, last_fetch_at, stats_url, schedule_url, standings_url, file_path
		FROM league_fetches
		WHERE source_key = $1
	`

	var state models.FetchState
	err := r.db.Pool.QueryRow(ctx, query, sourceKey).Scan(
		&state.SourceKey, &state.LastFetchAt, &state.StatsURL,
		&state.ScheduleURL, &state.StandingsURL, &state.FilePath,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "league_fetches", "error").Inc()
		return nil, fmt.Errorf("failed to get fetch state: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "league_fetches", "ok").Inc()
	return &state, nil
}

// Upsert records a completed fetch for a source key.
func (r *FetchStateRepository) Upsert(ctx context.Context, state *models.FetchState) error {
	query := `
		INSERT INTO league_fetches (
			source_key, last_fetch_at, stats_url, schedule_url, standings_url, file_path
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_key) DO UPDATE SET
			last_fetch_at = EXCLUDED.last_fetch_at,
			stats_url = EXCLUDED.stats_url,
			schedule_url = EXCLUDED.schedule_url,
			standings_url = EXCLUDED.standings_url,
			file_path = EXCLUDED.file_path
	`

	_, err := r.db.Pool.Exec(
		ctx, query,
		state.SourceKey, state.LastFetchAt, state.StatsURL,
		state.ScheduleURL, state.StandingsURL, state.FilePath,
	)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("upsert", "league_fetches", "error").Inc()
		return fmt.Errorf("failed to upsert fetch state: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("upsert", "league_fetches", "ok").Inc()
	return nil
}
