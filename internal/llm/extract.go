package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/extract"
)

const (
	// truncateLimit bounds single-shot prompt payloads.
	truncateLimit = 20000
	// statsChunkLimit and standingsChunkLimit bound per-chunk payloads when
	// the single-shot pass comes back empty or the document is large.
	statsChunkLimit     = 8000
	standingsChunkLimit = 7000
)

// ExtractBowlers asks the model for bowler rows. A single truncated pass
// runs first; when it yields nothing the full text is re-run in chunks. A
// timeout mid-chunk returns the rows gathered so far alongside ErrTimeout.
func ExtractBowlers(ctx context.Context, c Completer, text string) ([]extract.StatRow, error) {
	rows, err := extractBowlersOnce(ctx, c, truncateText(text, truncateLimit))
	if err != nil {
		return nil, err
	}
	rows = FilterBowlerRows(rows)
	if len(rows) > 0 {
		return rows, nil
	}
	var combined []extract.StatRow
	for _, chunk := range chunkText(text, statsChunkLimit) {
		chunkRows, err := extractBowlersOnce(ctx, c, chunk)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				return FilterBowlerRows(combined), err
			}
			return nil, err
		}
		combined = append(combined, FilterBowlerRows(chunkRows)...)
	}
	return FilterBowlerRows(combined), nil
}

func extractBowlersOnce(ctx context.Context, c Completer, text string) ([]extract.StatRow, error) {
	messages := []Message{
		{
			Role: "system",
			Content: "You extract structured bowling statistics from text. " +
				"Return JSON only, with no extra commentary.",
		},
		{
			Role: "user",
			Content: "From the stats text below, return a JSON array of bowler rows. " +
				"Each row must include: bowler, team, average. " +
				"Do NOT return team-only rows (team averages are typically 300+). " +
				"If the PDF groups bowlers under a team header, assign that team " +
				"to each bowler row. " +
				"Include any of these if present: handicap, wins, losses, high_game, " +
				"high_series, points. Return only the JSON array.\n\n" +
				"Text:\n" + text,
		},
	}
	items, err := completeArray(ctx, c, messages)
	if err != nil {
		return nil, err
	}
	rows := make([]extract.StatRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, statRowFromItem(item))
	}
	return rows, nil
}

func statRowFromItem(item map[string]any) extract.StatRow {
	return extract.StatRow{
		Bowler:     anyToString(item["bowler"]),
		Team:       anyToString(item["team"]),
		Average:    anyToInt(item["average"]),
		Handicap:   anyToInt(item["handicap"]),
		Wins:       anyToInt(item["wins"]),
		Losses:     anyToInt(item["losses"]),
		HighGame:   anyToInt(item["high_game"]),
		HighSeries: anyToInt(item["high_series"]),
		Points:     anyToFloat(item["points"]),
		Day:        anyToString(item["day"]),
		Raw:        item,
	}
}

// FilterBowlerRows drops rows that are not plausible individual bowlers:
// missing names, rows where the bowler equals the team, and averages at or
// above the team floor.
func FilterBowlerRows(rows []extract.StatRow) []extract.StatRow {
	var filtered []extract.StatRow
	for _, row := range rows {
		if row.Bowler == "" || row.Team == "" || row.Average == nil {
			continue
		}
		if strings.EqualFold(row.Bowler, row.Team) {
			continue
		}
		if *row.Average >= 300 {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// MergeWithLocal overlays model output onto locally parsed rows, keyed by
// lowercased bowler name. Local values take precedence; model values only
// fill fields the local parse left empty, and a missing or "Unknown" team
// never displaces a local team. Bowlers the local parse never saw are
// dropped.
func MergeWithLocal(local, llmRows []extract.StatRow) []extract.StatRow {
	if len(local) == 0 {
		return FilterBowlerRows(llmRows)
	}
	index := make(map[string]int, len(local))
	merged := make([]extract.StatRow, len(local))
	copy(merged, local)
	for i, row := range merged {
		if row.Bowler != "" {
			index[strings.ToLower(row.Bowler)] = i
		}
	}
	for _, row := range llmRows {
		if row.Bowler == "" {
			continue
		}
		i, ok := index[strings.ToLower(row.Bowler)]
		if !ok {
			continue
		}
		merged[i] = overlayStatRow(merged[i], row)
	}
	return FilterBowlerRows(merged)
}

func overlayStatRow(base, over extract.StatRow) extract.StatRow {
	if base.Team == "" && over.Team != "" && !strings.EqualFold(over.Team, "Unknown") {
		base.Team = over.Team
	}
	if base.Average == nil {
		base.Average = over.Average
	}
	if base.Handicap == nil {
		base.Handicap = over.Handicap
	}
	if base.Wins == nil {
		base.Wins = over.Wins
	}
	if base.Losses == nil {
		base.Losses = over.Losses
	}
	if base.HighGame == nil {
		base.HighGame = over.HighGame
	}
	if base.HighSeries == nil {
		base.HighSeries = over.HighSeries
	}
	if base.Points == nil {
		base.Points = over.Points
	}
	if base.Day == "" {
		base.Day = over.Day
	}
	return base
}

// ExtractStandings asks the model for standings rows, chunk by chunk. A
// chunk that times out is logged and skipped so one slow call does not lose
// the rest of the document.
func ExtractStandings(ctx context.Context, c Completer, text string) ([]extract.StandingRow, error) {
	var combined []extract.StandingRow
	for _, chunk := range chunkText(text, standingsChunkLimit) {
		rows, err := extractStandingsOnce(ctx, c, chunk)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				log.Warn().Err(err).Msg("Standings chunk timed out, skipping")
				continue
			}
			return nil, err
		}
		combined = append(combined, rows...)
	}
	return extract.DedupeStandings(combined), nil
}

func extractStandingsOnce(ctx context.Context, c Completer, text string) ([]extract.StandingRow, error) {
	messages := []Message{
		{
			Role: "system",
			Content: "You extract structured bowling standings from text. " +
				"Return JSON only, with no extra commentary.",
		},
		{
			Role: "user",
			Content: "From the standings text below, return a JSON array of rows. " +
				"Each item must include: day, team, wins, losses, points, " +
				"hi_series, team_avg, opp_avg, team_diff. " +
				"If a field is missing, set it to null. " +
				"Return only the JSON array.\n\n" +
				"Standings text:\n" + truncateText(text, truncateLimit),
		},
	}
	items, err := completeArray(ctx, c, messages)
	if err != nil {
		return nil, err
	}
	rows := make([]extract.StandingRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, extract.StandingRow{
			Day:        anyToString(item["day"]),
			Team:       anyToString(item["team"]),
			Wins:       anyToInt(item["wins"]),
			Losses:     anyToInt(item["losses"]),
			HighSeries: anyToInt(item["hi_series"]),
			TeamAvg:    anyToInt(item["team_avg"]),
			OppAvg:     anyToInt(item["opp_avg"]),
			TeamDiff:   anyToInt(item["team_diff"]),
			Points:     anyToFloat(item["points"]),
			Raw:        item,
		})
	}
	return rows, nil
}

// ExtractTeamMatches asks the model for every match involving one team.
func ExtractTeamMatches(ctx context.Context, c Completer, text, teamName string) ([]extract.MatchRow, error) {
	messages := []Message{
		{
			Role: "system",
			Content: "You extract structured schedules from text. " +
				"Return JSON only, with no extra commentary.",
		},
		{
			Role: "user",
			Content: "Given the schedule text below, return a JSON array of all matches " +
				fmt.Sprintf("that include the team '%s'. Each item must include: ", teamName) +
				"date, time, lanes, team_a, team_b, opponent. " +
				"If none found, return an empty array.\n\n" +
				"Schedule text:\n" + truncateText(text, truncateLimit),
		},
	}
	items, err := completeArray(ctx, c, messages)
	if err != nil {
		return nil, err
	}
	matches := make([]extract.MatchRow, 0, len(items))
	for _, item := range items {
		matches = append(matches, extract.MatchRow{
			Date:  anyToString(item["date"]),
			Time:  anyToString(item["time"]),
			Lane:  anyToString(item["lanes"]),
			TeamA: anyToString(item["team_a"]),
			TeamB: anyToString(item["team_b"]),
			Raw:   item,
		})
	}
	return matches, nil
}

// ExtractTeamSchedule asks the model for one team's dates, times and lanes,
// using the rendered schedule table for column alignment when available.
func ExtractTeamSchedule(ctx context.Context, c Completer, text, teamName string) ([]extract.MatchRow, error) {
	messages := []Message{
		{
			Role: "system",
			Content: "You extract a single team's bowling schedule from text. " +
				"Return JSON only, with no extra commentary.",
		},
		{
			Role: "user",
			Content: fmt.Sprintf("From the schedule text below, return a JSON array for team "+
				"%q. Each item must include: date, time, lane. ", teamName) +
				"If a lane is missing, return null for lane. " +
				"Use the schedule table if present for column alignment. " +
				"Return only the JSON array.\n\n" +
				"Text:\n" + truncateText(text, truncateLimit),
		},
	}
	items, err := completeArray(ctx, c, messages)
	if err != nil {
		return nil, err
	}
	matches := make([]extract.MatchRow, 0, len(items))
	for _, item := range items {
		matches = append(matches, extract.MatchRow{
			Date:  anyToString(item["date"]),
			Time:  anyToString(item["time"]),
			Lane:  anyToString(item["lane"]),
			TeamA: teamName,
			Raw:   item,
		})
	}
	return matches, nil
}

// TeamSummary is the single-team object contract for combined documents.
type TeamSummary struct {
	Team            string             `json:"team"`
	Position        int                `json:"position,omitempty"`
	Points          *float64           `json:"points"`
	PointsFromFirst *float64           `json:"points_from_first"`
	Schedule        []extract.MatchRow `json:"schedule"`
}

// ExtractTeamSummary asks the model for one team's standings position and
// schedule from a combined schedule-and-standings document.
func ExtractTeamSummary(ctx context.Context, c Completer, text, teamName string) (*TeamSummary, error) {
	messages := []Message{
		{
			Role: "system",
			Content: "You extract a single team's bowling standings and schedule from text. " +
				"Return JSON only, with no extra commentary.",
		},
		{
			Role: "user",
			Content: fmt.Sprintf("From the PDF text below, return a JSON object for the team "+
				"%q with:\n", teamName) +
				"- team\n" +
				"- points (number)\n" +
				"- points_from_first (number)\n" +
				"- schedule: array of items with date, time, lane\n" +
				"The schedule dates come from the columns in the schedule table, " +
				"and the time/lane come from the cell for the team's row. " +
				"Return only the JSON object.\n\n" +
				"Text:\n" + truncateText(text, truncateLimit),
		},
	}
	content, err := c.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	item, ok := decodeObject(content)
	if !ok {
		log.Warn().Msg("Team summary response not JSON")
		return nil, fmt.Errorf("%w: not a JSON object", ErrBadResponse)
	}
	summary := &TeamSummary{
		Team:            anyToString(item["team"]),
		Points:          anyToFloat(item["points"]),
		PointsFromFirst: anyToFloat(item["points_from_first"]),
	}
	if schedule, ok := item["schedule"].([]any); ok {
		for _, entry := range schedule {
			row, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			summary.Schedule = append(summary.Schedule, extract.MatchRow{
				Date:  anyToString(row["date"]),
				Time:  anyToString(row["time"]),
				Lane:  anyToString(row["lane"]),
				TeamA: teamName,
				Raw:   row,
			})
		}
	}
	return summary, nil
}

func completeArray(ctx context.Context, c Completer, messages []Message) ([]map[string]any, error) {
	content, err := c.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	items, ok := decodeArray(content)
	if !ok {
		log.Warn().Msg("Extraction response not a JSON array")
		return nil, nil
	}
	return items, nil
}

var (
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// decodeArray parses the content as a JSON array, recovering the outermost
// bracketed region when the model wrapped it in prose.
func decodeArray(content string) ([]map[string]any, bool) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items, true
	}
	fragment := arrayPattern.FindString(content)
	if fragment == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(fragment), &items); err != nil {
		return nil, false
	}
	return items, true
}

func decodeObject(content string) (map[string]any, bool) {
	var item map[string]any
	if err := json.Unmarshal([]byte(content), &item); err == nil {
		return item, true
	}
	fragment := objectPattern.FindString(content)
	if fragment == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(fragment), &item); err != nil {
		return nil, false
	}
	return item, true
}

func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// chunkText splits on line boundaries so each piece stays under the limit.
func chunkText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var current []string
	currentLen := 0
	for _, line := range strings.Split(text, "\n") {
		if currentLen+len(line)+1 > limit && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentLen = 0
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

func anyToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(strings.ReplaceAll(v, " ", " "))
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func anyToInt(value any) *int {
	f := anyToFloat(value)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func anyToFloat(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
