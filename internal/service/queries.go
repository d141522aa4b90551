package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/extract"
	"github.com/jackwood1/woodfamily-ai/internal/llm"
	"github.com/jackwood1/woodfamily-ai/internal/models"
)

// StatusOK marks a result whose data was produced normally; StatusError
// results carry one of the ErrCode values instead.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatsResult is the payload for averages and standings queries. Cached is
// true whenever the rows were served without refetching the document.
type StatsResult struct {
	Status    string               `json:"status"`
	Error     string               `json:"error,omitempty"`
	Cached    bool                 `json:"cached"`
	Refreshed bool                 `json:"refreshed"`
	Rows      []*models.StatRecord `json:"rows"`
}

// ScheduleResult is the payload for schedule queries.
type ScheduleResult struct {
	Status    string                `json:"status"`
	Error     string                `json:"error,omitempty"`
	Cached    bool                  `json:"cached"`
	Refreshed bool                  `json:"refreshed"`
	Matches   []*models.MatchRecord `json:"matches"`
}

// TeamStanding summarizes one team's league position.
type TeamStanding struct {
	Team            string  `json:"team"`
	Position        int     `json:"position"`
	Points          float64 `json:"points"`
	PointsFromFirst float64 `json:"points_from_first"`
}

// SnapshotResult is the payload for the combined team snapshot query:
// the team's standing plus its remaining schedule.
type SnapshotResult struct {
	Status    string                `json:"status"`
	Error     string                `json:"error,omitempty"`
	Cached    bool                  `json:"cached"`
	Refreshed bool                  `json:"refreshed"`
	Standing  *TeamStanding         `json:"standing,omitempty"`
	Standings []*models.StatRecord  `json:"standings"`
	Schedule  []*models.MatchRecord `json:"schedule"`
}

// GetAverages returns bowler average rows, filtered by team and/or player
// name. Exact normalized matching runs first, substring matching as fallback.
// force bypasses both the query cache and the staleness check.
func (s *Service) GetAverages(ctx context.Context, teamName, playerName string, force bool) *StatsResult {
	cacheKey := fmt.Sprintf("queries:averages:%s:%s", strings.ToLower(teamName), strings.ToLower(playerName))
	if !force && s.cache != nil {
		var cached StatsResult
		if s.cache.Get(ctx, cacheKey, &cached) {
			cached.Cached = true
			return &cached
		}
	}

	refreshed, err := s.ensureFresh(ctx, models.KindAverages, force)
	if err != nil {
		return &StatsResult{Status: StatusError, Error: errorCode(err)}
	}

	rows, err := s.stats.List(ctx, s.sourceKey(models.KindAverages), teamName, playerName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list averages")
		return &StatsResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}

	result := &StatsResult{Status: StatusOK, Cached: !refreshed, Refreshed: refreshed, Rows: rows}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, result)
	}
	return result
}

// GetSchedule returns a team's schedule rows, optionally narrowed to a date
// window. When the team has no stored matches, the cached document is re-read
// and the completer asked for that team's rows directly.
func (s *Service) GetSchedule(ctx context.Context, teamName, dateFrom, dateTo string, force bool) *ScheduleResult {
	if strings.TrimSpace(teamName) == "" {
		return &ScheduleResult{Status: StatusError, Error: ErrCodeTeamRequired}
	}

	cacheKey := fmt.Sprintf("queries:schedule:%s:%s:%s", strings.ToLower(teamName), dateFrom, dateTo)
	if !force && s.cache != nil {
		var cached ScheduleResult
		if s.cache.Get(ctx, cacheKey, &cached) {
			cached.Cached = true
			return &cached
		}
	}

	refreshed, err := s.ensureFresh(ctx, models.KindSchedule, force)
	if err != nil {
		return &ScheduleResult{Status: StatusError, Error: errorCode(err)}
	}

	sourceKey := s.sourceKey(models.KindSchedule)
	matches, err := s.matches.List(ctx, sourceKey, teamName, dateFrom, dateTo)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list matches")
		return &ScheduleResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}

	if len(matches) == 0 && s.llm != nil {
		text := extract.ScheduleTableText(s.cachedTables(ctx, sourceKey))
		if text == "" {
			text = s.cachedText(ctx, sourceKey)
		}
		if text != "" {
			llmRows, llmErr := llm.ExtractTeamMatches(ctx, s.llm, text, teamName)
			if llmErr != nil {
				log.Warn().Err(llmErr).Str("team", teamName).Msg("LLM schedule extraction failed")
				return &ScheduleResult{Status: StatusError, Error: errorCode(llmErr)}
			}
			for _, row := range extract.DedupeMatches(llmRows) {
				matches = append(matches, matchRecordFromRow(sourceKey, row))
			}
		}
	}

	result := &ScheduleResult{Status: StatusOK, Cached: !refreshed, Refreshed: refreshed, Matches: matches}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, result)
	}
	return result
}

// GetStandings returns standings rows, optionally filtered by league day
// and/or team name.
func (s *Service) GetStandings(ctx context.Context, day, teamName string, force bool) *StatsResult {
	cacheKey := fmt.Sprintf("queries:standings:%s:%s", strings.ToLower(day), strings.ToLower(teamName))
	if !force && s.cache != nil {
		var cached StatsResult
		if s.cache.Get(ctx, cacheKey, &cached) {
			cached.Cached = true
			return &cached
		}
	}

	refreshed, err := s.ensureFresh(ctx, models.KindStandings, force)
	if err != nil {
		return &StatsResult{Status: StatusError, Error: errorCode(err)}
	}

	rows, err := s.stats.List(ctx, s.sourceKey(models.KindStandings), teamName, "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to list standings")
		return &StatsResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}
	rows = filterByDay(rows, day)

	result := &StatsResult{Status: StatusOK, Cached: !refreshed, Refreshed: refreshed, Rows: rows}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, result)
	}
	return result
}

// GetLeagueSnapshot returns the combined schedule-and-standings view. With a
// team name it adds that team's standing (position, points behind the leader)
// and narrows the schedule to the team; the standing is computed locally from
// the stored standings, and the completer is only consulted when the stored
// rows do not mention the team at all.
func (s *Service) GetLeagueSnapshot(ctx context.Context, teamName string, force bool) *SnapshotResult {
	teamName = strings.TrimSpace(teamName)

	cacheKey := "queries:snapshot:" + strings.ToLower(teamName)
	if !force && s.cache != nil {
		var cached SnapshotResult
		if s.cache.Get(ctx, cacheKey, &cached) {
			cached.Cached = true
			return &cached
		}
	}

	refreshed, err := s.ensureFresh(ctx, models.KindSnapshot, force)
	if err != nil {
		return &SnapshotResult{Status: StatusError, Error: errorCode(err)}
	}

	sourceKey := s.sourceKey(models.KindSnapshot)
	standings, err := s.stats.List(ctx, sourceKey, "", "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to list snapshot standings")
		return &SnapshotResult{Status: StatusError, Error: ErrCodeFetchFailed}
	}

	if teamName == "" {
		schedule, listErr := s.matches.List(ctx, sourceKey, "", "", "")
		if listErr != nil {
			log.Error().Err(listErr).Msg("Failed to list snapshot matches")
			return &SnapshotResult{Status: StatusError, Error: ErrCodeFetchFailed}
		}
		result := &SnapshotResult{
			Status:    StatusOK,
			Cached:    !refreshed,
			Refreshed: refreshed,
			Standings: standings,
			Schedule:  schedule,
		}
		if s.cache != nil {
			s.cache.Set(ctx, cacheKey, result)
		}
		return result
	}

	standing := computeStanding(standings, teamName)
	schedule := s.teamScheduleFromSnapshot(ctx, sourceKey, teamName)

	if standing == nil && s.llm != nil {
		if text := s.cachedText(ctx, sourceKey); text != "" {
			summary, llmErr := llm.ExtractTeamSummary(ctx, s.llm, text, teamName)
			if llmErr != nil {
				log.Warn().Err(llmErr).Str("team", teamName).Msg("LLM team summary failed")
			} else if summary != nil {
				standing = &TeamStanding{
					Team:     summary.Team,
					Position: summary.Position,
				}
				if summary.Points != nil {
					standing.Points = *summary.Points
				}
				if summary.PointsFromFirst != nil {
					standing.PointsFromFirst = *summary.PointsFromFirst
				}
				if len(schedule) == 0 {
					for _, row := range summary.Schedule {
						schedule = append(schedule, matchRecordFromRow(sourceKey, row))
					}
				}
			}
		}
	}

	result := &SnapshotResult{
		Status:    StatusOK,
		Cached:    !refreshed,
		Refreshed: refreshed,
		Standing:  standing,
		Standings: standings,
		Schedule:  schedule,
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, result)
	}
	return result
}

// teamScheduleFromSnapshot builds the team's schedule, preferring stored
// matches, then the schedule grid of the cached document, then its text.
func (s *Service) teamScheduleFromSnapshot(ctx context.Context, sourceKey, teamName string) []*models.MatchRecord {
	matches, err := s.matches.List(ctx, sourceKey, teamName, "", "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to list snapshot matches")
	}
	if len(matches) > 0 {
		return matches
	}

	tables := s.cachedTables(ctx, sourceKey)
	rows := extract.TeamSchedule(tables, teamName)
	if len(rows) == 0 {
		if text := s.cachedText(ctx, sourceKey); text != "" {
			_, scheduleText := extract.SplitSections(text)
			if scheduleText == "" {
				scheduleText = text
			}
			rows = extract.ScheduleFromText(scheduleText)
			rows = matchesForTeam(rows, teamName)
		}
	}

	for _, row := range extract.DedupeMatches(rows) {
		matches = append(matches, matchRecordFromRow(sourceKey, row))
	}
	return matches
}

// computeStanding derives position and points-behind-leader from standings
// rows sorted by points descending. Exact name match wins over substring.
func computeStanding(rows []*models.StatRecord, teamName string) *TeamStanding {
	ranked := make([]*models.StatRecord, 0, len(rows))
	for _, row := range rows {
		if row.Points.Valid {
			ranked = append(ranked, row)
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points.Float64 > ranked[j].Points.Float64
	})

	idx := findTeamIndex(ranked, teamName)
	if idx < 0 {
		return nil
	}

	return &TeamStanding{
		Team:            ranked[idx].TeamName.String,
		Position:        idx + 1,
		Points:          ranked[idx].Points.Float64,
		PointsFromFirst: ranked[0].Points.Float64 - ranked[idx].Points.Float64,
	}
}

func findTeamIndex(rows []*models.StatRecord, teamName string) int {
	key := strings.ToLower(strings.TrimSpace(teamName))
	for i, row := range rows {
		if strings.ToLower(strings.TrimSpace(row.TeamName.String)) == key {
			return i
		}
	}
	for i, row := range rows {
		if strings.Contains(strings.ToLower(row.TeamName.String), key) {
			return i
		}
	}
	return -1
}

// filterByDay narrows standings rows to one league day. Structurally parsed
// rows carry no day at all; when that is true of every row the filter is a
// no-op rather than an empty result.
func filterByDay(rows []*models.StatRecord, day string) []*models.StatRecord {
	if day == "" {
		return rows
	}
	anyDay := false
	for _, row := range rows {
		if strings.TrimSpace(row.Day.String) != "" {
			anyDay = true
			break
		}
	}
	if !anyDay {
		return rows
	}
	key := strings.ToLower(strings.TrimSpace(day))
	filtered := make([]*models.StatRecord, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Day.String), key) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func matchesForTeam(rows []extract.MatchRow, teamName string) []extract.MatchRow {
	key := strings.ToLower(strings.TrimSpace(teamName))
	filtered := make([]extract.MatchRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.TeamA), key) ||
			strings.Contains(strings.ToLower(row.TeamB), key) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
