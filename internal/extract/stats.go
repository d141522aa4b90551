package extract

import (
	"regexp"
	"strings"
)

// statHeaders maps normalized record fields to the header spellings seen in
// published stats and averages documents.
var statHeaders = map[string][]string{
	"team":        {"team", "team name"},
	"player":      {"bowler", "name", "player"},
	"average":     {"avg", "average"},
	"handicap":    {"hdcp", "hcp", "handicap"},
	"wins":        {"wins", "win"},
	"losses":      {"losses", "loss"},
	"high_game":   {"hi game", "high game", "highgame", "hg"},
	"high_series": {"high series", "highseries", "hs"},
	"points":      {"points", "pts"},
}

// StatsFromTables extracts header-mapped stat rows from detected tables.
// Used for documents that carry their own column headers (averages sheets).
func StatsFromTables(tables [][][]string) []StatRow {
	var parsed []StatRow
	for _, table := range tables {
		for _, row := range RowsFromTable(table) {
			r := statRowFromMap(row)
			if !r.Empty() {
				parsed = append(parsed, r)
			}
		}
	}
	return parsed
}

func statRowFromMap(row map[string]string) StatRow {
	return StatRow{
		Team:       normName(findValue(row, statHeaders["team"])),
		Bowler:     normName(findValue(row, statHeaders["player"])),
		Average:    toInt(findValue(row, statHeaders["average"])),
		Handicap:   toInt(findValue(row, statHeaders["handicap"])),
		Wins:       toInt(findValue(row, statHeaders["wins"])),
		Losses:     toInt(findValue(row, statHeaders["losses"])),
		HighGame:   toInt(findValue(row, statHeaders["high_game"])),
		HighSeries: toInt(findValue(row, statHeaders["high_series"])),
		Points:     toFloat(findValue(row, statHeaders["points"])),
		Raw:        rawOf(row),
	}
}

// Bowlers extracts bowler rows from tables that group bowlers under team
// header rows instead of carrying a team column. The running team context is
// carried forward until the next team header.
func Bowlers(tables [][][]string) []StatRow {
	var parsed []StatRow
	currentTeam := ""
	for _, table := range tables {
		for _, raw := range table {
			var cells []string
			for _, c := range raw {
				if cleaned := cleanCell(c); cleaned != "" {
					cells = append(cells, cleaned)
				}
			}
			if len(cells) == 0 {
				continue
			}
			if isTeamHeader(cells) {
				name, _ := splitNameAvg(cells[0])
				if name == "" {
					name = cells[0]
				}
				currentTeam = normName(name)
				continue
			}
			if isBowlerHeader(cells) {
				continue
			}
			if currentTeam == "" || !isBowlerRow(cells) {
				continue
			}

			var bowler string
			var average *int
			if len(cells) == 1 {
				bowler, average = splitNameAvg(cells[0])
				bowler = normName(bowler)
			} else {
				bowler = normName(cells[0])
				average = toInt(cells[1])
			}
			if bowler == "" || average == nil {
				continue
			}
			parsed = append(parsed, StatRow{
				Bowler:  bowler,
				Team:    currentTeam,
				Average: average,
				Raw:     map[string]any{"cells": raw},
			})
		}
	}
	return parsed
}

// isTeamHeader recognizes the two team-header shapes: a single cell that
// decomposes into "<name> <integer>" with the integer at or above the team
// average floor, or a "<name>", "<integer>" two-cell form with nothing else
// populated.
func isTeamHeader(cells []string) bool {
	if len(cells) == 1 {
		name, avg := splitNameAvg(cells[0])
		return name != "" && avg != nil && *avg >= teamAvgFloor
	}
	if len(cells) < 2 || cells[0] == "" {
		return false
	}
	if isNumeric(cells[0]) {
		return false
	}
	if strings.Contains(strings.ToLower(cells[0]), "name") {
		return false
	}
	if !isNumeric(cells[1]) {
		return false
	}
	for _, c := range cells[2:] {
		if c != "" {
			return false
		}
	}
	return true
}

// isBowlerHeader recognizes a column-header row inside a grouped table.
func isBowlerHeader(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	return strings.Contains(joined, "name") &&
		(strings.Contains(joined, "avg") || strings.Contains(joined, "average"))
}

// isBowlerRow recognizes a bowler line: a name followed by an average below
// the team average floor.
func isBowlerRow(cells []string) bool {
	if len(cells) == 1 {
		name, avg := splitNameAvg(cells[0])
		return name != "" && avg != nil && *avg < teamAvgFloor
	}
	if len(cells) < 2 {
		return false
	}
	if cells[0] == "" || isNumeric(cells[0]) {
		return false
	}
	return toInt(cells[1]) != nil
}

var nameAvgPattern = regexp.MustCompile(`^(.+?)\s+(\d{2,4})$`)

// splitNameAvg decomposes "<name> <integer>" into its parts.
func splitNameAvg(value string) (string, *int) {
	cleaned := normName(strings.ReplaceAll(value, "|", " "))
	m := nameAvgPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", nil
	}
	return strings.TrimSpace(m[1]), toInt(m[2])
}

var trailingNumberPattern = regexp.MustCompile(`\b\d{2,4}\b`)
var letterPattern = regexp.MustCompile(`[A-Za-z]`)

// BowlersFromText applies the team-header/bowler classification to plain
// page text when no tables were detected: one line per row, first 2-4 digit
// number is the headline value.
func BowlersFromText(text string) []StatRow {
	var parsed []StatRow
	currentTeam := ""
	for _, line := range nonBlankLines(text) {
		cleaned := normName(strings.ReplaceAll(line, "|", " "))
		if looksLikeHeaderText(cleaned) {
			continue
		}
		name, avg := extractNameAndValue(cleaned)
		if name == "" || avg == nil {
			continue
		}
		if *avg >= teamAvgFloor {
			currentTeam = normName(name)
			continue
		}
		if currentTeam == "" {
			continue
		}
		parsed = append(parsed, StatRow{
			Bowler:  name,
			Team:    currentTeam,
			Average: avg,
			Raw:     map[string]any{"line": line},
		})
	}
	return parsed
}

func extractNameAndValue(line string) (string, *int) {
	loc := trailingNumberPattern.FindStringIndex(line)
	if loc == nil {
		return "", nil
	}
	name := strings.TrimSpace(line[:loc[0]])
	if name == "" || !letterPattern.MatchString(name) {
		return "", nil
	}
	return name, toInt(line[loc[0]:loc[1]])
}

var textHeaderKeywords = []string{
	"statistics", "standings", "captain", "points", "tm #", "name", "avg",
}

func looksLikeHeaderText(line string) bool {
	lowered := strings.ToLower(line)
	for _, kw := range textHeaderKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
