package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
	"github.com/jackwood1/woodfamily-ai/internal/models"

	"github.com/rs/zerolog/log"
)

// StatRepository handles normalized stats rows (bowler averages and
// team standings share one table, distinguished by player_name).
type StatRepository struct {
	db *Database
}

const statColumns = `id, source_key, team_name, player_name, average, handicap, wins,
       losses, high_game, high_series, points, day, raw_json, created_at, updated_at`

// ReplaceForSource replaces every stats row for one source key in a single
// transaction. A refresh always carries the full document, so partial
// updates are never needed.
func (r *StatRepository) ReplaceForSource(ctx context.Context, sourceKey string, records []*models.StatRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin stats replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM league_stats WHERE source_key = $1`, sourceKey); err != nil {
		metrics.DBQueriesTotal.WithLabelValues("delete", "league_stats", "error").Inc()
		return fmt.Errorf("failed to clear stats for %s: %w", sourceKey, err)
	}

	query := `
		INSERT INTO league_stats (
			source_key, team_name, player_name, average, handicap, wins,
			losses, high_game, high_series, points, day, raw_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, record := range records {
		if _, err := tx.Exec(
			ctx, query,
			sourceKey, record.TeamName, record.PlayerName, record.Average, record.Handicap,
			record.Wins, record.Losses, record.HighGame, record.HighSeries,
			record.Points, record.Day, record.Raw,
		); err != nil {
			metrics.DBQueriesTotal.WithLabelValues("insert", "league_stats", "error").Inc()
			return fmt.Errorf("failed to insert stats row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stats replace: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("replace", "league_stats", "ok").Inc()
	log.Debug().
		Str("source_key", sourceKey).
		Int("rows", len(records)).
		Msg("Stats rows replaced")
	return nil
}

// List returns stats rows for a source, optionally narrowed by team or
// player. Exact case- and whitespace-insensitive matches are tried first;
// when a filter finds nothing, a substring pass runs so partial names still
// resolve.
func (r *StatRepository) List(ctx context.Context, sourceKey, teamName, playerName string) ([]*models.StatRecord, error) {
	query := `SELECT ` + statColumns + ` FROM league_stats WHERE source_key = $1`
	args := []any{sourceKey}
	if teamName != "" {
		args = append(args, normalizeQueryValue(teamName))
		query += fmt.Sprintf(" AND lower(trim(team_name)) = $%d", len(args))
	}
	if playerName != "" {
		args = append(args, normalizeQueryValue(playerName))
		query += fmt.Sprintf(" AND lower(trim(player_name)) = $%d", len(args))
	}
	query += " ORDER BY team_name ASC, player_name ASC"

	records, err := r.queryStats(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 || (teamName == "" && playerName == "") {
		return records, nil
	}

	fuzzy := `SELECT ` + statColumns + ` FROM league_stats WHERE source_key = $1`
	fuzzyArgs := []any{sourceKey}
	if playerName != "" {
		fuzzyArgs = append(fuzzyArgs, "%"+normalizeQueryValue(playerName)+"%")
		fuzzy += fmt.Sprintf(" AND lower(player_name) LIKE $%d", len(fuzzyArgs))
	}
	if teamName != "" {
		fuzzyArgs = append(fuzzyArgs, "%"+normalizeQueryValue(teamName)+"%")
		fuzzy += fmt.Sprintf(" AND lower(team_name) LIKE $%d", len(fuzzyArgs))
	}
	fuzzy += " ORDER BY team_name ASC, player_name ASC"
	return r.queryStats(ctx, fuzzy, fuzzyArgs)
}

func (r *StatRepository) queryStats(ctx context.Context, query string, args []any) ([]*models.StatRecord, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "league_stats", "error").Inc()
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var records []*models.StatRecord
	for rows.Next() {
		var record models.StatRecord
		if err := rows.Scan(
			&record.ID, &record.SourceKey, &record.TeamName, &record.PlayerName,
			&record.Average, &record.Handicap, &record.Wins, &record.Losses,
			&record.HighGame, &record.HighSeries, &record.Points, &record.Day,
			&record.Raw, &record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "league_stats", "ok").Inc()
	return records, nil
}

// CountForSource returns the number of stats rows stored for a source.
func (r *StatRepository) CountForSource(ctx context.Context, sourceKey string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(
		ctx, `SELECT COUNT(*) FROM league_stats WHERE source_key = $1`, sourceKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stats rows: %w", err)
	}
	return count, nil
}

// normalizeQueryValue lowercases and collapses whitespace, including
// non-breaking spaces carried over from PDF text.
func normalizeQueryValue(value string) string {
	cleaned := strings.ReplaceAll(value, " ", " ")
	return strings.Join(strings.Fields(strings.ToLower(cleaned)), " ")
}
