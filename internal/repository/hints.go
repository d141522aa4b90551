package repository

import (
	"context"
	"fmt"

	"github.com/jackwood1/woodfamily-ai/internal/models"
)

// HintRepository stores name-routing hints for bowlers, teams and leagues.
type HintRepository struct {
	db *Database
}

// Upsert adds a hint, keeping one row per (hint_type, value) pair.
func (r *HintRepository) Upsert(ctx context.Context, hintType, value string) error {
	query := `
		INSERT INTO league_hints (hint_type, value)
		VALUES ($1, $2)
		ON CONFLICT (hint_type, value) DO UPDATE SET updated_at = NOW()
	`
	if _, err := r.db.Pool.Exec(ctx, query, hintType, value); err != nil {
		return fmt.Errorf("failed to upsert hint: %w", err)
	}
	return nil
}

// Delete removes a hint and reports whether a row existed.
func (r *HintRepository) Delete(ctx context.Context, hintType, value string) (bool, error) {
	result, err := r.db.Pool.Exec(
		ctx, `DELETE FROM league_hints WHERE hint_type = $1 AND value = $2`, hintType, value,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete hint: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List returns hints, optionally narrowed to one type.
func (r *HintRepository) List(ctx context.Context, hintType string) ([]*models.HintRecord, error) {
	query := `SELECT id, hint_type, value, created_at, updated_at FROM league_hints`
	args := []any{}
	if hintType != "" {
		query += ` WHERE hint_type = $1`
		args = append(args, hintType)
	}
	query += ` ORDER BY hint_type ASC, value ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hints: %w", err)
	}
	defer rows.Close()

	var hints []*models.HintRecord
	for rows.Next() {
		var hint models.HintRecord
		if err := rows.Scan(&hint.ID, &hint.HintType, &hint.Value, &hint.CreatedAt, &hint.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hint: %w", err)
		}
		hints = append(hints, &hint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hints: %w", err)
	}

	return hints, nil
}
