package extract

import (
	"sort"
	"strconv"
	"strings"
)

// StatRow is one normalized stats row: a bowler row (Bowler set) or a
// team/standings row (Bowler empty). Raw keeps the originally extracted
// shape; it is the only place heterogeneous table cells survive past the
// normalization boundary.
type StatRow struct {
	Bowler     string
	Team       string
	Average    *int
	Handicap   *int
	Wins       *int
	Losses     *int
	HighGame   *int
	HighSeries *int
	Points     *float64
	Day        string
	Raw        map[string]any
}

// Empty reports whether no meaningful field was extracted.
func (r StatRow) Empty() bool {
	return r.Bowler == "" && r.Team == "" && r.Average == nil && r.Handicap == nil &&
		r.Wins == nil && r.Losses == nil && r.HighGame == nil && r.HighSeries == nil &&
		r.Points == nil
}

// MatchRow is one normalized schedule row.
type MatchRow struct {
	Date           string
	Time           string
	Lane           string
	TeamA          string
	TeamB          string
	TeamNumber     string
	OpponentNumber string
	Raw            map[string]any
}

// StandingRow is one normalized standings row.
type StandingRow struct {
	Day        string
	Team       string
	Captain    string
	TeamNumber string
	Wins       *int
	Losses     *int
	HighSeries *int
	TeamAvg    *int
	OppAvg     *int
	TeamDiff   *int
	Points     *float64
	Raw        map[string]any
}

// teamAvgFloor is the domain convention separating team rows from bowler
// rows: league documents print team averages at 300 or above, individual
// averages below.
const teamAvgFloor = 300

func toInt(value string) *int {
	cleaned := cleanNumeric(value)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func toFloat(value string) *float64 {
	cleaned := cleanNumeric(value)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// cleanNumeric strips thousands separators and converts accounting-style
// parentheses to a leading minus.
func cleanNumeric(value string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	cleaned = strings.ReplaceAll(cleaned, "(", "-")
	cleaned = strings.ReplaceAll(cleaned, ")", "")
	return strings.TrimSpace(cleaned)
}

// normName collapses whitespace and non-breaking spaces in a display name.
func normName(value string) string {
	cleaned := strings.ReplaceAll(value, " ", " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(cleaned, " "))
}

// findValue returns the first cell whose header contains one of the keys,
// in key priority order. Headers are scanned in sorted order so lookups are
// deterministic.
func findValue(row map[string]string, keys []string) string {
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, key := range keys {
		for _, h := range headers {
			if strings.Contains(h, key) {
				return row[h]
			}
		}
	}
	return ""
}

func isNumeric(value string) bool {
	cleaned := cleanNumeric(value)
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

func rawOf(row map[string]string) map[string]any {
	raw := make(map[string]any, len(row))
	for k, v := range row {
		raw[k] = v
	}
	return raw
}
