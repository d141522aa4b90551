package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/models"
)

// ErrCodeInvalidHint marks a hint request with an unknown type or empty value.
const ErrCodeInvalidHint = "invalid_hint"

// HintStore persists name hints used to steer fuzzy matching.
type HintStore interface {
	Upsert(ctx context.Context, hintType, value string) error
	Delete(ctx context.Context, hintType, value string) (bool, error)
	List(ctx context.Context, hintType string) ([]*models.HintRecord, error)
}

// HintResult is the payload for hint mutations and listings.
type HintResult struct {
	Status   string               `json:"status"`
	Error    string               `json:"error,omitempty"`
	HintType string               `json:"hint_type,omitempty"`
	Value    string               `json:"value,omitempty"`
	Removed  bool                 `json:"removed,omitempty"`
	Hints    []*models.HintRecord `json:"hints,omitempty"`
}

// AddHint records a known bowler, team, or league name.
func (s *Service) AddHint(ctx context.Context, hintType, value string) *HintResult {
	hintType = strings.ToLower(strings.TrimSpace(hintType))
	value = strings.TrimSpace(value)
	if !validHintType(hintType) || value == "" {
		return &HintResult{Status: StatusError, Error: ErrCodeInvalidHint}
	}

	if err := s.hints.Upsert(ctx, hintType, value); err != nil {
		log.Error().Err(err).Str("hint_type", hintType).Msg("Failed to save hint")
		return &HintResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}
	return &HintResult{Status: StatusOK, HintType: hintType, Value: value}
}

// RemoveHint deletes a hint; Removed reports whether it existed.
func (s *Service) RemoveHint(ctx context.Context, hintType, value string) *HintResult {
	hintType = strings.ToLower(strings.TrimSpace(hintType))
	value = strings.TrimSpace(value)
	if !validHintType(hintType) || value == "" {
		return &HintResult{Status: StatusError, Error: ErrCodeInvalidHint}
	}

	removed, err := s.hints.Delete(ctx, hintType, value)
	if err != nil {
		log.Error().Err(err).Str("hint_type", hintType).Msg("Failed to remove hint")
		return &HintResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}
	return &HintResult{Status: StatusOK, HintType: hintType, Value: value, Removed: removed}
}

// ListHints returns stored hints, optionally filtered by type.
func (s *Service) ListHints(ctx context.Context, hintType string) *HintResult {
	hintType = strings.ToLower(strings.TrimSpace(hintType))
	if hintType != "" && !validHintType(hintType) {
		return &HintResult{Status: StatusError, Error: ErrCodeInvalidHint}
	}

	hints, err := s.hints.List(ctx, hintType)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list hints")
		return &HintResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}
	return &HintResult{Status: StatusOK, Hints: hints}
}

func validHintType(hintType string) bool {
	switch hintType {
	case models.HintBowler, models.HintTeam, models.HintLeague:
		return true
	}
	return false
}
