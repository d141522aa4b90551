package service

import (
	"encoding/json"

	"github.com/jackwood1/woodfamily-ai/internal/extract"
	"github.com/jackwood1/woodfamily-ai/internal/models"
)

func statRecordFromRow(sourceKey string, row extract.StatRow) *models.StatRecord {
	return &models.StatRecord{
		SourceKey:  sourceKey,
		TeamName:   models.NullStr(row.Team),
		PlayerName: models.NullStr(row.Bowler),
		Day:        models.NullStr(row.Day),
		Average:    models.NullInt(row.Average),
		Handicap:   models.NullInt(row.Handicap),
		Wins:       models.NullInt(row.Wins),
		Losses:     models.NullInt(row.Losses),
		HighGame:   models.NullInt(row.HighGame),
		HighSeries: models.NullInt(row.HighSeries),
		Points:     models.NullFloat(row.Points),
		Raw:        marshalRaw(row.Raw),
	}
}

// statRecordFromStanding stores a standings row as a team-level stat record.
// Columns without a dedicated field (captain, opponent average, differential)
// survive in Raw.
func statRecordFromStanding(sourceKey string, row extract.StandingRow) *models.StatRecord {
	raw := map[string]any{
		"team":        row.Team,
		"team_number": row.TeamNumber,
		"captain":     row.Captain,
	}
	if row.OppAvg != nil {
		raw["opp_avg"] = *row.OppAvg
	}
	if row.TeamDiff != nil {
		raw["team_diff"] = *row.TeamDiff
	}

	return &models.StatRecord{
		SourceKey:  sourceKey,
		TeamName:   models.NullStr(row.Team),
		Day:        models.NullStr(row.Day),
		Average:    models.NullInt(row.TeamAvg),
		Wins:       models.NullInt(row.Wins),
		Losses:     models.NullInt(row.Losses),
		HighSeries: models.NullInt(row.HighSeries),
		Points:     models.NullFloat(row.Points),
		Raw:        marshalRaw(raw),
	}
}

func matchRecordFromRow(sourceKey string, row extract.MatchRow) *models.MatchRecord {
	raw := row.Raw
	if raw == nil {
		raw = map[string]any{
			"team_number":     row.TeamNumber,
			"opponent_number": row.OpponentNumber,
		}
	}

	return &models.MatchRecord{
		SourceKey: sourceKey,
		MatchDate: models.NullStr(row.Date),
		MatchTime: models.NullStr(row.Time),
		Lane:      models.NullStr(row.Lane),
		TeamA:     models.NullStr(row.TeamA),
		TeamB:     models.NullStr(row.TeamB),
		Raw:       marshalRaw(raw),
	}
}

func marshalRaw(raw map[string]any) []byte {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return data
}
