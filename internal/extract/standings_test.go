package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandingsParsesHeaderTable(t *testing.T) {
	tables := [][][]string{
		{
			{"Monday League Standings", "", "", ""},
			{"Tm #", "Name", "Captain", "Points"},
			{"1", "Strikers", "Alex", "42.5"},
			{"2", "Pin Pals", "Sam", "38"},
			{"", "totals", "", "80.5"},
		},
	}

	rows := Standings(tables)

	require.Len(t, rows, 2)
	assert.Equal(t, "Strikers", rows[0].Team)
	assert.Equal(t, "Alex", rows[0].Captain)
	assert.Equal(t, "1", rows[0].TeamNumber)
	require.NotNil(t, rows[0].Points)
	assert.Equal(t, 42.5, *rows[0].Points)
	assert.Equal(t, "Pin Pals", rows[1].Team)
}

func TestStandingsWithoutHeaderReturnsNothing(t *testing.T) {
	tables := [][][]string{
		{
			{"Strikers", "42.5"},
			{"Pin Pals", "38"},
		},
	}

	assert.Empty(t, Standings(tables))
}

func TestStandingsSkipsNonNumericTeamNumbers(t *testing.T) {
	tables := [][][]string{
		{
			{"Tm #", "Name", "Captain", "Points"},
			{"x", "Strikers", "Alex", "42.5"},
			{"2", "", "Sam", "38"},
			{"3", "Pin Pals", "Sam", ""},
		},
	}

	assert.Empty(t, Standings(tables))
}

func TestDedupeStandings(t *testing.T) {
	points := func(v float64) *float64 { return &v }
	rows := []StandingRow{
		{Day: "Monday", Team: "Strikers", Points: points(42)},
		{Day: "monday", Team: "STRIKERS", Points: points(42)},
		{Day: "Tuesday", Team: "Strikers", Points: points(40)},
	}

	deduped := DedupeStandings(rows)

	require.Len(t, deduped, 2)
	assert.Equal(t, "Monday", deduped[0].Day)
	assert.Equal(t, "Tuesday", deduped[1].Day)
}

func TestSplitSections(t *testing.T) {
	text := "Monday Standings\nteam rows here\nMonday Schedule\nschedule rows here"

	standings, schedule := SplitSections(text)

	assert.Contains(t, standings, "Standings")
	assert.NotContains(t, standings, "Schedule")
	assert.Contains(t, schedule, "Schedule")
}

func TestSplitSectionsWithoutHeadingsReturnsWholeText(t *testing.T) {
	text := "nothing labeled here"

	standings, schedule := SplitSections(text)

	assert.Equal(t, text, standings)
	assert.Equal(t, text, schedule)
}

func TestScheduleTableText(t *testing.T) {
	rendered := ScheduleTableText([][][]string{scheduleGrid()})

	assert.Contains(t, rendered, "Week Number | 1 | 2 | 3")
	assert.Contains(t, rendered, "1 | Strikers | 6:30 1")

	assert.Empty(t, ScheduleTableText([][][]string{{{"no", "grid"}}}))
}
