package extract

import (
	"regexp"
	"sort"
	"strings"
)

var (
	datePattern     = regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`)
	timePattern     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	timeFullPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	lanePattern     = regexp.MustCompile(`\b\d{1,2}\b`)
	digitsPattern   = regexp.MustCompile(`\b\d+\b`)
	opponentLine    = regexp.MustCompile(`^[\d\s]+$`)
)

// Schedule parses league schedule grids. Each grid carries a date header row
// with one MM/DD column per week, a team row per team, and optionally a
// digit-only opponent row directly below each team row.
func Schedule(tables [][][]string) []MatchRow {
	var matches []MatchRow
	for _, table := range tables {
		matches = append(matches, parseScheduleTable(table)...)
	}
	return DedupeMatches(matches)
}

func parseScheduleTable(table [][]string) []MatchRow {
	rows := cleanRows(table)
	if len(rows) == 0 {
		return nil
	}
	dateIdx := findRowIndex(rows, "date")
	var dateRow []string
	if dateIdx >= 0 {
		dateRow = rows[dateIdx]
	}
	dateColumns := dateColumnsOf(dateRow)
	if len(dateColumns) == 0 {
		return nil
	}
	startIdx := 0
	if dateIdx >= 0 {
		startIdx = dateIdx + 1
	}
	teamMap := buildTeamMap(rows, startIdx)

	var matches []MatchRow
	idx := startIdx
	for idx < len(rows) {
		row := rows[idx]
		teamNumber, teamName := parseTeamRowHeader(row)
		if teamName == "" {
			idx++
			continue
		}
		var opponentRow []string
		if idx+1 < len(rows) && looksLikeOpponentRow(rows[idx+1]) {
			opponentRow = rows[idx+1]
		}
		for _, colIdx := range sortedColumns(dateColumns) {
			dateValue := dateColumns[colIdx]
			var cell string
			if colIdx < len(row) {
				cell = row[colIdx]
			}
			if cell == "" || strings.Contains(strings.ToLower(cell), "postponed") {
				continue
			}
			timeValue, laneValue, opponentNumber := parseScheduleCell(cell)
			if opponentRow != nil && colIdx < len(opponentRow) {
				if oc := strings.TrimSpace(opponentRow[colIdx]); oc != "" && isDigits(oc) {
					opponentNumber = oc
				}
			}
			if timeValue == "" {
				continue
			}
			teamB := teamMap[opponentNumber]
			if teamB == "" {
				teamB = opponentNumber
			}
			matches = append(matches, MatchRow{
				Date:           dateValue,
				Time:           timeValue,
				Lane:           laneValue,
				TeamA:          teamName,
				TeamB:          teamB,
				TeamNumber:     teamNumber,
				OpponentNumber: opponentNumber,
				Raw:            map[string]any{"cell": cell, "date": dateValue},
			})
		}
		if opponentRow != nil {
			idx += 2
		} else {
			idx++
		}
	}
	return matches
}

// TeamSchedule projects one team's time and lane per week from a schedule
// grid. Falls back to the row above the team row when the team row itself
// carries no time tokens.
func TeamSchedule(tables [][][]string, teamName string) []MatchRow {
	teamKey := strings.ToLower(strings.TrimSpace(teamName))
	for _, table := range tables {
		rows := cleanRows(table)
		if !looksLikeScheduleGrid(rows) {
			continue
		}
		dateRowIdx := bestDateRowIndex(rows)
		if dateRowIdx < 0 {
			continue
		}
		expanded := expandDateColumns(rows[dateRowIdx])
		if len(expanded) == 0 {
			continue
		}
		for idx := dateRowIdx + 1; idx < len(rows); idx++ {
			row := rows[idx]
			if !rowMentionsTeam(row, teamKey) {
				continue
			}
			timeRow := row
			if countTimeTokens(timeRow) == 0 && idx > 0 && countTimeTokens(rows[idx-1]) > 0 {
				timeRow = rows[idx-1]
			}
			return teamScheduleFromRow(timeRow, expanded, teamName)
		}
	}
	return nil
}

func teamScheduleFromRow(row []string, dateColumns []dateColumn, teamName string) []MatchRow {
	var matches []MatchRow
	for _, dc := range dateColumns {
		var cell string
		if dc.col < len(row) {
			cell = row[dc.col]
		}
		timeValue, laneValue, _ := parseScheduleCell(cell)
		if timeValue == "" && laneValue == "" {
			laneValue = firstLaneToken(cell)
		}
		matches = append(matches, MatchRow{
			Date:  dc.date,
			Time:  timeValue,
			Lane:  laneValue,
			TeamA: teamName,
			Raw:   map[string]any{"cell": cell, "date": dc.date},
		})
	}
	return matches
}

type dateColumn struct {
	col  int
	date string
}

// expandDateColumns handles date headers where one physical cell packs
// several MM/DD values. Each extra date shifts one column to the right.
func expandDateColumns(row []string) []dateColumn {
	var expanded []dateColumn
	for idx, cell := range row {
		if cell == "" {
			continue
		}
		for offset, date := range datePattern.FindAllString(cell, -1) {
			expanded = append(expanded, dateColumn{col: idx + offset, date: date})
		}
	}
	return expanded
}

func bestDateRowIndex(rows [][]string) int {
	best := -1
	bestCount := 0
	for idx, row := range rows {
		if count := len(dateColumnsOf(row)); count > bestCount {
			bestCount = count
			best = idx
		}
	}
	return best
}

func looksLikeScheduleGrid(rows [][]string) bool {
	hasWeek := false
	hasDate := false
	for _, row := range rows {
		joined := strings.ToLower(strings.Join(row, " "))
		if strings.Contains(joined, "week number") {
			hasWeek = true
		}
		if strings.Contains(joined, "date") {
			hasDate = true
		}
	}
	return hasWeek && hasDate
}

func rowMentionsTeam(row []string, teamKey string) bool {
	for _, cell := range row {
		if cell != "" && strings.ToLower(strings.TrimSpace(cell)) == teamKey {
			return true
		}
	}
	return false
}

func countTimeTokens(row []string) int {
	count := 0
	for _, cell := range row {
		if cell != "" && timePattern.MatchString(cell) {
			count++
		}
	}
	return count
}

func firstLaneToken(cell string) string {
	return lanePattern.FindString(cell)
}

func sortedColumns(columns map[int]string) []int {
	keys := make([]int, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// dateColumnsOf finds the columns holding MM/DD values, keyed by column index.
func dateColumnsOf(row []string) map[int]string {
	columns := make(map[int]string)
	for idx, cell := range row {
		if m := datePattern.FindString(cell); m != "" {
			columns[idx] = m
		}
	}
	return columns
}

func buildTeamMap(rows [][]string, startIdx int) map[string]string {
	teamMap := make(map[string]string)
	for _, row := range rows[min(startIdx, len(rows)):] {
		number, name := parseTeamRowHeader(row)
		if number != "" && name != "" {
			teamMap[number] = name
		}
	}
	return teamMap
}

// parseTeamRowHeader reads the leading "<number> <name>" or "<name> <number>"
// pair from a schedule row.
func parseTeamRowHeader(row []string) (string, string) {
	if len(row) == 0 {
		return "", ""
	}
	first := row[0]
	second := ""
	if len(row) > 1 {
		second = row[1]
	}
	if isDigits(first) {
		return first, second
	}
	if isDigits(second) {
		return second, first
	}
	return "", first
}

// parseScheduleCell pulls the match time, the lane right after it, and any
// digit-only opponent number from one schedule cell.
func parseScheduleCell(cell string) (string, string, string) {
	var lines []string
	for _, line := range strings.Split(cell, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	text := strings.Join(lines, " ")
	loc := timePattern.FindStringIndex(text)
	timeValue := ""
	laneValue := ""
	if loc != nil {
		timeValue = text[loc[0]:loc[1]]
		laneValue = lanePattern.FindString(text[loc[1]:])
	}
	opponent := ""
	for _, line := range lines[min(1, len(lines)):] {
		if isDigits(line) {
			opponent = line
			break
		}
	}
	if opponent == "" {
		for _, token := range lines {
			if isDigits(token) {
				opponent = token
			}
		}
	}
	return timeValue, laneValue, opponent
}

func looksLikeOpponentRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	digits := 0
	for _, cell := range row {
		if cell == "" {
			continue
		}
		if letterPattern.MatchString(cell) {
			return false
		}
		if isDigits(strings.TrimSpace(cell)) {
			digits++
		}
	}
	return digits >= 2
}

// ScheduleFromText reads the plain-text rendition of a schedule grid: a
// "Date:" line naming the weeks, then per team a time/lane line, a
// "<number> <name>" header line and a digit-only opponent line.
func ScheduleFromText(text string) []MatchRow {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return nil
	}
	dateIdx := findLineIndex(lines, "date:")
	if dateIdx < 0 {
		return nil
	}
	dates := datePattern.FindAllString(lines[dateIdx], -1)
	if len(dates) == 0 {
		return nil
	}
	teamRows := parseTeamTextRows(lines[dateIdx+1:], len(dates))
	teamMap := make(map[string]string)
	for _, tr := range teamRows {
		teamMap[tr.number] = tr.name
	}
	var matches []MatchRow
	for _, tr := range teamRows {
		for idx, date := range dates {
			if idx >= len(tr.pairs) {
				continue
			}
			pair := tr.pairs[idx]
			if pair.time == "" {
				continue
			}
			opponent := ""
			if idx < len(tr.opponents) {
				opponent = tr.opponents[idx]
			}
			teamB := teamMap[opponent]
			if teamB == "" {
				teamB = opponent
			}
			matches = append(matches, MatchRow{
				Date:           date,
				Time:           pair.time,
				Lane:           pair.lane,
				TeamA:          tr.name,
				TeamB:          teamB,
				TeamNumber:     tr.number,
				OpponentNumber: opponent,
				Raw:            map[string]any{"date": date},
			})
		}
	}
	return DedupeMatches(matches)
}

type timeLanePair struct {
	time string
	lane string
}

type teamTextRow struct {
	number    string
	name      string
	pairs     []timeLanePair
	opponents []string
}

func parseTeamTextRows(lines []string, dateLen int) []teamTextRow {
	var rows []teamTextRow
	var lastPairs []timeLanePair
	idx := 0
	for idx < len(lines) {
		line := lines[idx]
		if lineHasTimePairs(line) {
			lastPairs = parseTimeLaneLine(line, dateLen)
			idx++
			continue
		}
		if line == "" || !isDigit(line[0]) {
			idx++
			continue
		}
		if idx+1 >= len(lines) || !opponentLine.MatchString(lines[idx+1]) {
			idx++
			continue
		}
		number, name := parseTeamTextHeader(line)
		if name == "" || len(lastPairs) == 0 {
			idx++
			continue
		}
		rows = append(rows, teamTextRow{
			number:    number,
			name:      name,
			pairs:     lastPairs,
			opponents: digitsPattern.FindAllString(lines[idx+1], -1),
		})
		lastPairs = nil
		idx += 2
	}
	return rows
}

func parseTeamTextHeader(line string) (string, string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || !isDigits(tokens[0]) {
		return "", ""
	}
	return tokens[0], strings.TrimSpace(strings.Join(tokens[1:], " "))
}

func lineHasTimePairs(line string) bool {
	for _, token := range strings.Fields(line) {
		if timeFullPattern.MatchString(token) {
			return true
		}
	}
	return false
}

// parseTimeLaneLine reads alternating time/lane tokens, one pair per week.
func parseTimeLaneLine(line string, dateLen int) []timeLanePair {
	tokens := strings.Fields(line)
	var pairs []timeLanePair
	idx := 0
	for idx < len(tokens) {
		if !timeFullPattern.MatchString(tokens[idx]) {
			idx++
			continue
		}
		pair := timeLanePair{time: tokens[idx]}
		if idx+1 < len(tokens) && isDigits(tokens[idx+1]) {
			pair.lane = tokens[idx+1]
		}
		pairs = append(pairs, pair)
		idx += 2
	}
	if dateLen > 0 && len(pairs) > dateLen {
		pairs = pairs[:dateLen]
	}
	return pairs
}

// DedupeMatches drops repeated matches keyed by date, time and both teams.
func DedupeMatches(matches []MatchRow) []MatchRow {
	type key struct{ date, time, teamA, teamB string }
	seen := make(map[key]struct{})
	var deduped []MatchRow
	for _, m := range matches {
		k := key{
			date:  strings.ToLower(strings.TrimSpace(m.Date)),
			time:  strings.ToLower(strings.TrimSpace(m.Time)),
			teamA: strings.ToLower(strings.TrimSpace(m.TeamA)),
			teamB: strings.ToLower(strings.TrimSpace(m.TeamB)),
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, m)
	}
	return deduped
}

func findRowIndex(rows [][]string, label string) int {
	for idx, row := range rows {
		if strings.Contains(strings.ToLower(strings.Join(row, " ")), label) {
			return idx
		}
	}
	return -1
}

func findLineIndex(lines []string, needle string) int {
	for idx, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			return idx
		}
	}
	return -1
}

func cleanRows(table [][]string) [][]string {
	rows := make([][]string, 0, len(table))
	for _, row := range table {
		cleaned := make([]string, len(row))
		empty := true
		for i, cell := range row {
			cleaned[i] = cleanCell(cell)
			if cleaned[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, cleaned)
		}
	}
	return rows
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
