package models

import (
	"database/sql"
	"net/url"
	"path"
	"time"
)

// DocumentKind is the semantic category of a published league document.
type DocumentKind string

const (
	KindAverages  DocumentKind = "averages"
	KindSchedule  DocumentKind = "schedule"
	KindStandings DocumentKind = "standings"
	// KindSnapshot is a combined schedule+standings document published as one PDF.
	KindSnapshot DocumentKind = "snapshot"
)

// Keyword returns the anchor-text keyword used to locate this document kind
// on an unversioned listing page.
func (k DocumentKind) Keyword() string {
	switch k {
	case KindSnapshot:
		return "standings"
	default:
		return string(k)
	}
}

// FetchState tracks the last successful fetch for one source key.
// One row per source; never deleted. LastFetchAt only moves forward.
type FetchState struct {
	SourceKey    string         `db:"source_key"`
	LastFetchAt  time.Time      `db:"last_fetch_at"`
	StatsURL     sql.NullString `db:"stats_url"`
	ScheduleURL  sql.NullString `db:"schedule_url"`
	StandingsURL sql.NullString `db:"standings_url"`
	FilePath     sql.NullString `db:"file_path"`
}

// URLForKind returns the previously recorded source URL for a document kind.
func (s *FetchState) URLForKind(kind DocumentKind) string {
	switch kind {
	case KindAverages:
		return s.StatsURL.String
	case KindSchedule:
		return s.ScheduleURL.String
	case KindStandings, KindSnapshot:
		return s.StandingsURL.String
	}
	return ""
}

// SetURLForKind records the resolved source URL for a document kind.
func (s *FetchState) SetURLForKind(kind DocumentKind, value string) {
	ns := sql.NullString{String: value, Valid: value != ""}
	switch kind {
	case KindAverages:
		s.StatsURL = ns
	case KindSchedule:
		s.ScheduleURL = ns
	case KindStandings, KindSnapshot:
		s.StandingsURL = ns
	}
}

// ShouldRefresh reports whether the source behind a fetch state is stale.
// True when no state exists, no fetch timestamp exists, the last fetch is
// older than the refresh interval, or the candidate URL's basename differs
// from the recorded one (publishers replace the file under a new name).
func ShouldRefresh(state *FetchState, kind DocumentKind, candidateURL string, interval time.Duration, now time.Time) bool {
	if state == nil || state.LastFetchAt.IsZero() {
		return true
	}
	if now.Sub(state.LastFetchAt) > interval {
		return true
	}
	if urlBasename(state.URLForKind(kind)) != urlBasename(candidateURL) {
		return true
	}
	return false
}

func urlBasename(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

// StatRecord is one normalized stats row: either a bowler row (PlayerName set)
// or a team/standings row (PlayerName empty). Raw preserves the originally
// extracted shape for debugging.
type StatRecord struct {
	ID         int             `db:"id"`
	SourceKey  string          `db:"source_key"`
	TeamName   sql.NullString  `db:"team_name"`
	PlayerName sql.NullString  `db:"player_name"`
	Average    sql.NullInt32   `db:"average"`
	Handicap   sql.NullInt32   `db:"handicap"`
	Wins       sql.NullInt32   `db:"wins"`
	Losses     sql.NullInt32   `db:"losses"`
	HighGame   sql.NullInt32   `db:"high_game"`
	HighSeries sql.NullInt32   `db:"high_series"`
	Points     sql.NullFloat64 `db:"points"`
	Day        sql.NullString  `db:"day"`
	Raw        []byte          `db:"raw_json"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// MatchRecord is one normalized schedule row.
type MatchRecord struct {
	ID        int            `db:"id"`
	SourceKey string         `db:"source_key"`
	MatchDate sql.NullString `db:"match_date"`
	MatchTime sql.NullString `db:"match_time"`
	Lane      sql.NullString `db:"lane"`
	TeamA     sql.NullString `db:"team_a"`
	TeamB     sql.NullString `db:"team_b"`
	Raw       []byte         `db:"raw_json"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// HintRecord maps a free-text value to a known bowler, team, or league name.
// Consumed by the conversational layer for name disambiguation.
type HintRecord struct {
	ID        int       `db:"id"`
	HintType  string    `db:"hint_type"`
	Value     string    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Hint types.
const (
	HintBowler = "bowler"
	HintTeam   = "team"
	HintLeague = "league"
)

// NullStr wraps a string for a nullable column; empty means NULL.
func NullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// NullInt wraps an optional int for a nullable column.
func NullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

// NullFloat wraps an optional float for a nullable column.
func NullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
