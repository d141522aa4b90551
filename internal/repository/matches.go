package repository

import (
	"context"
	"fmt"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
	"github.com/jackwood1/woodfamily-ai/internal/models"

	"github.com/rs/zerolog/log"
)

// MatchRepository handles normalized schedule rows.
type MatchRepository struct {
	db *Database
}

const matchColumns = `id, source_key, match_date, match_time, lane, team_a, team_b,
       raw_json, created_at, updated_at`

// ReplaceForSource replaces every match row for one source key in a single
// transaction.
func (r *MatchRepository) ReplaceForSource(ctx context.Context, sourceKey string, records []*models.MatchRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin matches replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM league_matches WHERE source_key = $1`, sourceKey); err != nil {
		metrics.DBQueriesTotal.WithLabelValues("delete", "league_matches", "error").Inc()
		return fmt.Errorf("failed to clear matches for %s: %w", sourceKey, err)
	}

	query := `
		INSERT INTO league_matches (
			source_key, match_date, match_time, lane, team_a, team_b, raw_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, record := range records {
		if _, err := tx.Exec(
			ctx, query,
			sourceKey, record.MatchDate, record.MatchTime, record.Lane,
			record.TeamA, record.TeamB, record.Raw,
		); err != nil {
			metrics.DBQueriesTotal.WithLabelValues("insert", "league_matches", "error").Inc()
			return fmt.Errorf("failed to insert match row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit matches replace: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("replace", "league_matches", "ok").Inc()
	log.Debug().
		Str("source_key", sourceKey).
		Int("rows", len(records)).
		Msg("Match rows replaced")
	return nil
}

// List returns match rows for a source, optionally narrowed to one team or
// a date range. Team names match case-insensitively on either side of the
// pairing; dates are the document's own MM/DD strings.
func (r *MatchRepository) List(ctx context.Context, sourceKey, teamName, dateFrom, dateTo string) ([]*models.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM league_matches WHERE source_key = $1`
	args := []any{sourceKey}
	if teamName != "" {
		args = append(args, normalizeQueryValue(teamName))
		query += fmt.Sprintf(" AND (lower(trim(team_a)) = $%d OR lower(trim(team_b)) = $%d)", len(args), len(args))
	}
	if dateFrom != "" {
		args = append(args, dateFrom)
		query += fmt.Sprintf(" AND match_date >= $%d", len(args))
	}
	if dateTo != "" {
		args = append(args, dateTo)
		query += fmt.Sprintf(" AND match_date <= $%d", len(args))
	}
	query += " ORDER BY match_date DESC, match_time DESC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "league_matches", "error").Inc()
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var records []*models.MatchRecord
	for rows.Next() {
		var record models.MatchRecord
		if err := rows.Scan(
			&record.ID, &record.SourceKey, &record.MatchDate, &record.MatchTime,
			&record.Lane, &record.TeamA, &record.TeamB, &record.Raw,
			&record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "league_matches", "ok").Inc()
	return records, nil
}
