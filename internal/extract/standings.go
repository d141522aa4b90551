package extract

import "strings"

// Standings parses standings grids keyed by a "Tm # / Name / Captain /
// Points" header row. Rows without a numeric team number are skipped.
func Standings(tables [][][]string) []StandingRow {
	var standings []StandingRow
	for _, table := range tables {
		standings = append(standings, parseStandingsTable(table)...)
	}
	return standings
}

func parseStandingsTable(table [][]string) []StandingRow {
	rows := cleanRows(table)
	if len(rows) == 0 {
		return nil
	}
	headerIdx := standingsHeaderIndex(rows)
	if headerIdx < 0 {
		return nil
	}
	header := rows[headerIdx]
	tmIdx := headerCol(header, []string{"tm", "tm #", "team #"})
	nameIdx := headerCol(header, []string{"name", "team"})
	captainIdx := headerCol(header, []string{"captain"})
	pointsIdx := headerCol(header, []string{"points", "pts"})
	if tmIdx < 0 || nameIdx < 0 || pointsIdx < 0 {
		return nil
	}

	var parsed []StandingRow
	for _, row := range rows[headerIdx+1:] {
		tmValue := cellAt(row, tmIdx)
		team := cellAt(row, nameIdx)
		pointsValue := cellAt(row, pointsIdx)
		if !isDigits(strings.TrimSpace(tmValue)) {
			continue
		}
		if team == "" || pointsValue == "" {
			continue
		}
		points := toFloat(pointsValue)
		if points == nil {
			continue
		}
		parsed = append(parsed, StandingRow{
			Team:       normName(team),
			Captain:    normName(cellAt(row, captainIdx)),
			TeamNumber: strings.TrimSpace(tmValue),
			Points:     points,
			Raw:        map[string]any{"cells": row},
		})
	}
	return parsed
}

// standingsHeaderIndex finds the row mentioning all four standings labels.
func standingsHeaderIndex(rows [][]string) int {
	for idx, row := range rows {
		hasTm, hasName, hasCaptain, hasPoints := false, false, false, false
		for _, cell := range row {
			lowered := strings.ToLower(cell)
			if lowered == "" {
				continue
			}
			if strings.Contains(lowered, "tm") {
				hasTm = true
			}
			if strings.Contains(lowered, "name") {
				hasName = true
			}
			if strings.Contains(lowered, "captain") {
				hasCaptain = true
			}
			if strings.Contains(lowered, "points") {
				hasPoints = true
			}
		}
		if hasTm && hasName && hasCaptain && hasPoints {
			return idx
		}
	}
	return -1
}

func headerCol(header []string, keys []string) int {
	for idx, cell := range header {
		normalized := strings.TrimSpace(strings.ToLower(cell))
		for _, key := range keys {
			if strings.Contains(normalized, key) {
				return idx
			}
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// DedupeStandings drops repeated rows keyed by league night and team.
func DedupeStandings(rows []StandingRow) []StandingRow {
	type key struct{ day, team string }
	seen := make(map[key]struct{})
	var deduped []StandingRow
	for _, row := range rows {
		k := key{
			day:  strings.ToLower(strings.TrimSpace(row.Day)),
			team: strings.ToLower(strings.TrimSpace(row.Team)),
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, row)
	}
	return deduped
}

// SplitSections divides combined schedule-and-standings page text into its
// standings and schedule halves based on which heading appears first.
func SplitSections(text string) (string, string) {
	lowered := strings.ToLower(text)
	scheduleIdx := strings.Index(lowered, "schedule")
	standingsIdx := strings.Index(lowered, "standings")
	if scheduleIdx == -1 || standingsIdx == -1 {
		return text, text
	}
	if standingsIdx < scheduleIdx {
		return text[standingsIdx:scheduleIdx], text[scheduleIdx:]
	}
	return text[standingsIdx:], text[scheduleIdx:standingsIdx]
}

// LooksLikeScheduleTable reports whether a grid carries the week-number and
// date header rows of a schedule section.
func LooksLikeScheduleTable(table [][]string) bool {
	return looksLikeScheduleGrid(cleanRows(table))
}

// ScheduleTableText renders the first schedule-shaped grid as pipe-joined
// lines, used to give language-model extraction the column alignment.
func ScheduleTableText(tables [][][]string) string {
	for _, table := range tables {
		rows := cleanRows(table)
		if !looksLikeScheduleGrid(rows) {
			continue
		}
		var lines []string
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}
