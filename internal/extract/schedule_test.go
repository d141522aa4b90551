package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduleGrid() [][]string {
	return [][]string{
		{"", "Week Number", "1", "2", "3"},
		{"", "Date", "1/5", "1/12", "1/19"},
		{"1", "Strikers", "6:30 1", "6:45 3", "7:00 5"},
		{"", "", "2", "3", "4"},
		{"2", "Pin Pals", "6:30 2", "postponed", "7:00 6"},
		{"", "", "1", "", "3"},
	}
}

func TestScheduleParsesGrid(t *testing.T) {
	matches := Schedule([][][]string{scheduleGrid()})

	require.Len(t, matches, 5)
	first := matches[0]
	assert.Equal(t, "1/5", first.Date)
	assert.Equal(t, "6:30", first.Time)
	assert.Equal(t, "1", first.Lane)
	assert.Equal(t, "Strikers", first.TeamA)
	assert.Equal(t, "Pin Pals", first.TeamB)
	assert.Equal(t, "1", first.TeamNumber)
	assert.Equal(t, "2", first.OpponentNumber)
}

func TestScheduleSkipsPostponedCells(t *testing.T) {
	matches := Schedule([][][]string{scheduleGrid()})

	for _, m := range matches {
		if m.TeamA == "Pin Pals" {
			assert.NotEqual(t, "1/12", m.Date)
		}
	}
}

func TestScheduleResolvesOpponentNamesFromTeamMap(t *testing.T) {
	matches := Schedule([][][]string{scheduleGrid()})

	var pinPals []MatchRow
	for _, m := range matches {
		if m.TeamA == "Pin Pals" {
			pinPals = append(pinPals, m)
		}
	}
	require.Len(t, pinPals, 2)
	assert.Equal(t, "Strikers", pinPals[0].TeamB)
}

func TestExpandDateColumnsHandlesPackedCells(t *testing.T) {
	row := []string{"Date", "1/5 1/12", "", "1/19"}

	expanded := expandDateColumns(row)

	require.Len(t, expanded, 3)
	assert.Equal(t, dateColumn{col: 1, date: "1/5"}, expanded[0])
	assert.Equal(t, dateColumn{col: 2, date: "1/12"}, expanded[1])
	assert.Equal(t, dateColumn{col: 3, date: "1/19"}, expanded[2])
}

func TestParseScheduleCell(t *testing.T) {
	timeValue, laneValue, opponent := parseScheduleCell("6:30 12\n4")
	assert.Equal(t, "6:30", timeValue)
	assert.Equal(t, "12", laneValue)
	assert.Equal(t, "4", opponent)

	timeValue, laneValue, opponent = parseScheduleCell("7:15")
	assert.Equal(t, "7:15", timeValue)
	assert.Empty(t, laneValue)
	assert.Empty(t, opponent)

	timeValue, _, _ = parseScheduleCell("")
	assert.Empty(t, timeValue)
}

func TestLooksLikeOpponentRow(t *testing.T) {
	assert.True(t, looksLikeOpponentRow([]string{"", "2", "3", "4"}))
	assert.False(t, looksLikeOpponentRow([]string{"", "2"}))
	assert.False(t, looksLikeOpponentRow([]string{"Strikers", "2", "3"}))
	assert.False(t, looksLikeOpponentRow(nil))
}

func TestTeamScheduleProjectsOneTeam(t *testing.T) {
	matches := TeamSchedule([][][]string{scheduleGrid()}, "Strikers")

	require.Len(t, matches, 3)
	assert.Equal(t, "1/5", matches[0].Date)
	assert.Equal(t, "6:30", matches[0].Time)
	assert.Equal(t, "Strikers", matches[0].TeamA)
	assert.Equal(t, "1/19", matches[2].Date)
	assert.Equal(t, "7:00", matches[2].Time)
}

func TestTeamScheduleMissingTeamReturnsNil(t *testing.T) {
	assert.Nil(t, TeamSchedule([][][]string{scheduleGrid()}, "Gutter Gang"))
}

func TestScheduleFromText(t *testing.T) {
	text := "League Schedule\n" +
		"Date: 1/5 1/12 1/19\n" +
		"6:30 1 6:45 3 7:00 5\n" +
		"1 Strikers\n" +
		"2 3 4\n" +
		"6:30 2 7:00 6\n" +
		"2 Pin Pals\n" +
		"1 3\n"

	matches := ScheduleFromText(text)

	require.Len(t, matches, 5)
	assert.Equal(t, "Strikers", matches[0].TeamA)
	assert.Equal(t, "Pin Pals", matches[0].TeamB)
	assert.Equal(t, "1/5", matches[0].Date)
	assert.Equal(t, "6:30", matches[0].Time)
	assert.Equal(t, "1", matches[0].Lane)
}

func TestScheduleFromTextWithoutDateLine(t *testing.T) {
	assert.Nil(t, ScheduleFromText("no schedule here"))
}

func TestParseTimeLaneLine(t *testing.T) {
	pairs := parseTimeLaneLine("6:30 1 6:45 3 7:00 5", 2)

	require.Len(t, pairs, 2)
	assert.Equal(t, timeLanePair{time: "6:30", lane: "1"}, pairs[0])
	assert.Equal(t, timeLanePair{time: "6:45", lane: "3"}, pairs[1])
}

func TestDedupeMatches(t *testing.T) {
	matches := []MatchRow{
		{Date: "1/5", Time: "6:30", TeamA: "Strikers", TeamB: "Pin Pals"},
		{Date: "1/5", Time: "6:30", TeamA: "strikers", TeamB: "PIN PALS"},
		{Date: "1/12", Time: "6:30", TeamA: "Strikers", TeamB: "Pin Pals"},
	}

	deduped := DedupeMatches(matches)

	require.Len(t, deduped, 2)
	assert.Equal(t, "1/5", deduped[0].Date)
	assert.Equal(t, "1/12", deduped[1].Date)
}
