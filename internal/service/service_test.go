package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwood1/woodfamily-ai/internal/config"
	"github.com/jackwood1/woodfamily-ai/internal/fetch"
	"github.com/jackwood1/woodfamily-ai/internal/llm"
	"github.com/jackwood1/woodfamily-ai/internal/models"
)

const listingPage = `<html><body>
	<a href="/docs/averages.pdf">League Averages</a>
	<a href="/docs/schedule.pdf">Weekly Schedule</a>
	<a href="/docs/standings.pdf">Standings and Results</a>
</body></html>`

type fakeFetcher struct {
	html     string
	htmlErr  error
	pdf      []byte
	pdfErr   error
	pdfCalls int
	lastURL  string
}

func (f *fakeFetcher) FetchPDF(_ context.Context, url string) ([]byte, error) {
	f.pdfCalls++
	f.lastURL = url
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return f.pdf, nil
}

func (f *fakeFetcher) FetchHTML(_ context.Context, _ string) (string, error) {
	return f.html, f.htmlErr
}

type fakeStatStore struct {
	rows         map[string][]*models.StatRecord
	replaceCalls int
}

func (f *fakeStatStore) ReplaceForSource(_ context.Context, sourceKey string, records []*models.StatRecord) error {
	if f.rows == nil {
		f.rows = make(map[string][]*models.StatRecord)
	}
	f.rows[sourceKey] = records
	f.replaceCalls++
	return nil
}

func (f *fakeStatStore) List(_ context.Context, sourceKey, _, _ string) ([]*models.StatRecord, error) {
	return f.rows[sourceKey], nil
}

type fakeMatchStore struct {
	rows         map[string][]*models.MatchRecord
	replaceCalls int
}

func (f *fakeMatchStore) ReplaceForSource(_ context.Context, sourceKey string, records []*models.MatchRecord) error {
	if f.rows == nil {
		f.rows = make(map[string][]*models.MatchRecord)
	}
	f.rows[sourceKey] = records
	f.replaceCalls++
	return nil
}

func (f *fakeMatchStore) List(_ context.Context, sourceKey, _, _, _ string) ([]*models.MatchRecord, error) {
	return f.rows[sourceKey], nil
}

type fakeFetchStates struct {
	states map[string]*models.FetchState
}

type fakeHintStore struct {
	hints map[string][]string
}

func (f *fakeHintStore) Upsert(_ context.Context, hintType, value string) error {
	if f.hints == nil {
		f.hints = make(map[string][]string)
	}
	for _, v := range f.hints[hintType] {
		if v == value {
			return nil
		}
	}
	f.hints[hintType] = append(f.hints[hintType], value)
	return nil
}

func (f *fakeHintStore) Delete(_ context.Context, hintType, value string) (bool, error) {
	values := f.hints[hintType]
	for i, v := range values {
		if v == value {
			f.hints[hintType] = append(values[:i], values[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHintStore) List(_ context.Context, hintType string) ([]*models.HintRecord, error) {
	var records []*models.HintRecord
	for ht, values := range f.hints {
		if hintType != "" && ht != hintType {
			continue
		}
		for _, v := range values {
			records = append(records, &models.HintRecord{HintType: ht, Value: v})
		}
	}
	return records, nil
}

func (f *fakeFetchStates) Get(_ context.Context, sourceKey string) (*models.FetchState, error) {
	return f.states[sourceKey], nil
}

func (f *fakeFetchStates) Upsert(_ context.Context, state *models.FetchState) error {
	if f.states == nil {
		f.states = make(map[string]*models.FetchState)
	}
	f.states[state.SourceKey] = state
	return nil
}

type countingCompleter struct {
	calls int
	reply string
	err   error
}

func (c *countingCompleter) Complete(_ context.Context, _ []llm.Message) (string, error) {
	c.calls++
	return c.reply, c.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ListingURL:   "http://league.test/documents",
		SourcePrefix: "bowling",
		RefreshDays:  7,
		CacheDir:     t.TempDir(),
	}
}

func testService(t *testing.T, fetcher *fakeFetcher) (*Service, *fakeStatStore, *fakeMatchStore, *fakeFetchStates) {
	t.Helper()
	stats := &fakeStatStore{}
	matches := &fakeMatchStore{}
	fetches := &fakeFetchStates{states: make(map[string]*models.FetchState)}
	svc := NewService(testConfig(t), fetcher, nil, stats, matches, fetches, &fakeHintStore{}, nil)
	return svc, stats, matches, fetches
}

func TestEnsureFresh_FetchesAndRecordsState(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4 not a real document")}
	svc, stats, _, fetches := testService(t, fetcher)

	refreshed, err := svc.ensureFresh(context.Background(), models.KindAverages, false)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, fetcher.pdfCalls)
	assert.Equal(t, "http://league.test/docs/averages.pdf", fetcher.lastURL)
	assert.Equal(t, 1, stats.replaceCalls)

	state := fetches.states["bowling_averages"]
	require.NotNil(t, state)
	assert.Equal(t, "http://league.test/docs/averages.pdf", state.StatsURL.String)
	assert.False(t, state.LastFetchAt.IsZero())
	assert.True(t, state.FilePath.Valid)

	data, readErr := os.ReadFile(state.FilePath.String)
	require.NoError(t, readErr)
	assert.Equal(t, fetcher.pdf, data)
	assert.Equal(t, "bowling_averages.pdf", filepath.Base(state.FilePath.String))
}

func TestEnsureFresh_SkipsWhenStateIsFresh(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4")}
	svc, _, _, fetches := testService(t, fetcher)

	state := &models.FetchState{
		SourceKey:   "bowling_averages",
		LastFetchAt: time.Now().Add(-time.Hour),
	}
	state.SetURLForKind(models.KindAverages, "http://league.test/docs/averages.pdf")
	fetches.states["bowling_averages"] = state

	refreshed, err := svc.ensureFresh(context.Background(), models.KindAverages, false)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 0, fetcher.pdfCalls)
}

func TestEnsureFresh_RefreshesWhenBasenameChanges(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4")}
	svc, _, _, fetches := testService(t, fetcher)

	state := &models.FetchState{
		SourceKey:   "bowling_averages",
		LastFetchAt: time.Now().Add(-time.Hour),
	}
	state.SetURLForKind(models.KindAverages, "http://league.test/docs/averages_old.pdf")
	fetches.states["bowling_averages"] = state

	refreshed, err := svc.ensureFresh(context.Background(), models.KindAverages, false)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, fetcher.pdfCalls)
}

func TestEnsureFresh_ForceBypassesFreshState(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4")}
	svc, _, _, fetches := testService(t, fetcher)

	state := &models.FetchState{
		SourceKey:   "bowling_averages",
		LastFetchAt: time.Now(),
	}
	state.SetURLForKind(models.KindAverages, "http://league.test/docs/averages.pdf")
	fetches.states["bowling_averages"] = state

	refreshed, err := svc.ensureFresh(context.Background(), models.KindAverages, true)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, fetcher.pdfCalls)
}

func TestEnsureFresh_UsesOverrideWithoutListingFetch(t *testing.T) {
	fetcher := &fakeFetcher{htmlErr: assert.AnError, pdf: []byte("%PDF-1.4")}
	stats := &fakeStatStore{}
	matches := &fakeMatchStore{}
	fetches := &fakeFetchStates{states: make(map[string]*models.FetchState)}

	cfg := testConfig(t)
	cfg.AveragesURL = "http://league.test/pinned/averages.pdf"
	svc := NewService(cfg, fetcher, nil, stats, matches, fetches, &fakeHintStore{}, nil)

	refreshed, err := svc.ensureFresh(context.Background(), models.KindAverages, false)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "http://league.test/pinned/averages.pdf", fetcher.lastURL)
}

func testServiceWithCompleter(t *testing.T, completer *countingCompleter) *Service {
	t.Helper()
	fetcher := &fakeFetcher{html: listingPage}
	fetches := &fakeFetchStates{states: make(map[string]*models.FetchState)}
	return NewService(testConfig(t), fetcher, completer, &fakeStatStore{}, &fakeMatchStore{}, fetches, &fakeHintStore{}, nil)
}

func TestBowlerRows_SkipsCompleterWhenTablesParse(t *testing.T) {
	completer := &countingCompleter{reply: `[]`}
	svc := testServiceWithCompleter(t, completer)

	tables := [][][]string{{{"Beer Frame 600"}, {"Gino 156"}, {"Maria 204"}}}
	text := "Beer Frame 600\nGino 156\nMaria 204"

	rows := svc.bowlerRows(context.Background(), "bowling_averages", tables, text)

	require.Len(t, rows, 2)
	assert.Equal(t, "Gino", rows[0].Bowler)
	assert.Equal(t, "Beer Frame", rows[0].Team)
	assert.Equal(t, 0, completer.calls)
}

func TestBowlerRows_CompleterRunsWhenTablesFindNothing(t *testing.T) {
	completer := &countingCompleter{reply: `[{"bowler":"Gino","team":"Strikers","average":156}]`}
	svc := testServiceWithCompleter(t, completer)

	rows := svc.bowlerRows(context.Background(), "bowling_averages", nil, "League Night Week 12")

	assert.Equal(t, 1, completer.calls)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gino", rows[0].Bowler)
	assert.Equal(t, "Strikers", rows[0].Team)
}

func TestBowlerRows_ModelFillsFieldsTextParseMissed(t *testing.T) {
	completer := &countingCompleter{reply: `[{"bowler":"Gino","team":"Unknown","average":190,"handicap":21}]`}
	svc := testServiceWithCompleter(t, completer)

	rows := svc.bowlerRows(context.Background(), "bowling_averages", nil, "Beer Frame 600\nGino 156")

	require.Len(t, rows, 1)
	assert.Equal(t, "Beer Frame", rows[0].Team)
	require.NotNil(t, rows[0].Average)
	assert.Equal(t, 156, *rows[0].Average)
	require.NotNil(t, rows[0].Handicap)
	assert.Equal(t, 21, *rows[0].Handicap)
}

func TestGetAverages_SourceNotFound(t *testing.T) {
	fetcher := &fakeFetcher{html: "<html><body>no documents here</body></html>"}
	svc, _, _, _ := testService(t, fetcher)

	result := svc.GetAverages(context.Background(), "", "", false)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeSourceNotFound, result.Error)
}

func TestGetAverages_BadContent(t *testing.T) {
	fetcher := &fakeFetcher{
		html: listingPage,
		pdfErr: &fetch.ContentError{
			URL:         "http://league.test/docs/averages.pdf",
			ContentType: "text/html",
		},
	}
	svc, _, _, _ := testService(t, fetcher)

	result := svc.GetAverages(context.Background(), "", "", false)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeBadContent, result.Error)
}

func TestGetAverages_ReturnsStoredRows(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, stats, _, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_averages", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindAverages, "http://league.test/docs/averages.pdf")
	fetches.states["bowling_averages"] = state
	stats.rows = map[string][]*models.StatRecord{
		"bowling_averages": {
			{SourceKey: "bowling_averages", PlayerName: models.NullStr("Gino"), TeamName: models.NullStr("Strikers")},
		},
	}

	result := svc.GetAverages(context.Background(), "Strikers", "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.False(t, result.Refreshed)
	assert.True(t, result.Cached)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Gino", result.Rows[0].PlayerName.String)
}

func TestGetAverages_CachedFlagClearsAfterRefresh(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4")}
	svc, _, _, fetches := testService(t, fetcher)

	// Stale state forces a refetch: the response is not a cached one.
	state := &models.FetchState{
		SourceKey:   "bowling_averages",
		LastFetchAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	state.SetURLForKind(models.KindAverages, "http://league.test/docs/averages.pdf")
	fetches.states["bowling_averages"] = state

	result := svc.GetAverages(context.Background(), "", "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.True(t, result.Refreshed)
	assert.False(t, result.Cached)

	// The state is now fresh, so the next call serves stored rows as cached.
	result = svc.GetAverages(context.Background(), "", "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.False(t, result.Refreshed)
	assert.True(t, result.Cached)
}

func TestGetSchedule_ReturnsStoredMatches(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, _, matches, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_schedule", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindSchedule, "http://league.test/docs/schedule.pdf")
	fetches.states["bowling_schedule"] = state
	matches.rows = map[string][]*models.MatchRecord{
		"bowling_schedule": {
			{SourceKey: "bowling_schedule", MatchDate: models.NullStr("1/5"), TeamA: models.NullStr("Strikers")},
		},
	}

	result := svc.GetSchedule(context.Background(), "Strikers", "", "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.True(t, result.Cached)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "1/5", result.Matches[0].MatchDate.String)
}

func TestGetStandings_FiltersByDay(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, stats, _, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_standings", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindStandings, "http://league.test/docs/standings.pdf")
	fetches.states["bowling_standings"] = state
	stats.rows = map[string][]*models.StatRecord{
		"bowling_standings": {
			{TeamName: models.NullStr("Strikers"), Day: models.NullStr("Monday")},
			{TeamName: models.NullStr("Pin Pals"), Day: models.NullStr("Thursday")},
		},
	}

	result := svc.GetStandings(context.Background(), "monday", "", false)
	require.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Strikers", result.Rows[0].TeamName.String)
}

func TestGetStandings_DayFilterSkippedWhenRowsCarryNoDay(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, stats, _, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_standings", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindStandings, "http://league.test/docs/standings.pdf")
	fetches.states["bowling_standings"] = state
	stats.rows = map[string][]*models.StatRecord{
		"bowling_standings": {
			{TeamName: models.NullStr("Strikers")},
			{TeamName: models.NullStr("Pin Pals")},
		},
	}

	result := svc.GetStandings(context.Background(), "monday", "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.Len(t, result.Rows, 2)
}

func TestGetSchedule_RequiresTeamName(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, _, _, _ := testService(t, fetcher)

	result := svc.GetSchedule(context.Background(), "  ", "", "", false)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrCodeTeamRequired, result.Error)
}

func TestGetLeagueSnapshot_WithoutTeamReturnsLeagueView(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, stats, matches, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_snapshot", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindSnapshot, "http://league.test/docs/standings.pdf")
	fetches.states["bowling_snapshot"] = state

	ten := 10.0
	stats.rows = map[string][]*models.StatRecord{
		"bowling_snapshot": {
			{TeamName: models.NullStr("Strikers"), Points: models.NullFloat(&ten)},
		},
	}
	matches.rows = map[string][]*models.MatchRecord{
		"bowling_snapshot": {
			{MatchDate: models.NullStr("1/5"), TeamA: models.NullStr("Strikers")},
		},
	}

	result := svc.GetLeagueSnapshot(context.Background(), "", false)
	require.Equal(t, StatusOK, result.Status)
	assert.True(t, result.Cached)
	assert.Nil(t, result.Standing)
	assert.Len(t, result.Standings, 1)
	assert.Len(t, result.Schedule, 1)
}

func TestGetLeagueSnapshot_ComputesStanding(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, stats, _, fetches := testService(t, fetcher)

	state := &models.FetchState{SourceKey: "bowling_snapshot", LastFetchAt: time.Now()}
	state.SetURLForKind(models.KindSnapshot, "http://league.test/docs/standings.pdf")
	fetches.states["bowling_snapshot"] = state

	ten := 10.0
	seven := 7.0
	four := 4.0
	stats.rows = map[string][]*models.StatRecord{
		"bowling_snapshot": {
			{TeamName: models.NullStr("Pin Pals"), Points: models.NullFloat(&seven)},
			{TeamName: models.NullStr("Strikers"), Points: models.NullFloat(&ten)},
			{TeamName: models.NullStr("Gutter Gang"), Points: models.NullFloat(&four)},
		},
	}

	result := svc.GetLeagueSnapshot(context.Background(), "Pin Pals", false)
	require.Equal(t, StatusOK, result.Status)
	require.NotNil(t, result.Standing)
	assert.Equal(t, "Pin Pals", result.Standing.Team)
	assert.Equal(t, 2, result.Standing.Position)
	assert.Equal(t, 7.0, result.Standing.Points)
	assert.Equal(t, 3.0, result.Standing.PointsFromFirst)
}

func TestComputeStanding_SubstringFallback(t *testing.T) {
	ten := 10.0
	five := 5.0
	rows := []*models.StatRecord{
		{TeamName: models.NullStr("The Mighty Strikers"), Points: models.NullFloat(&ten)},
		{TeamName: models.NullStr("Pin Pals"), Points: models.NullFloat(&five)},
	}

	standing := computeStanding(rows, "strikers")
	require.NotNil(t, standing)
	assert.Equal(t, 1, standing.Position)
	assert.Equal(t, 0.0, standing.PointsFromFirst)

	assert.Nil(t, computeStanding(rows, "no such team"))
}

func TestSyncAll_ContinuesAfterFailure(t *testing.T) {
	fetcher := &fakeFetcher{html: "<html><body>empty</body></html>"}
	svc, stats, matches, _ := testService(t, fetcher)

	err := svc.SyncAll(context.Background(), false)
	assert.Error(t, err)
	assert.Equal(t, 0, stats.replaceCalls)
	assert.Equal(t, 0, matches.replaceCalls)
}

func TestSyncAll_RefreshesAllKinds(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage, pdf: []byte("%PDF-1.4")}
	svc, stats, matches, fetches := testService(t, fetcher)

	err := svc.SyncAll(context.Background(), false)
	require.NoError(t, err)

	// averages, standings, snapshot all store stat rows
	assert.Equal(t, 3, stats.replaceCalls)
	// schedule and snapshot store match rows
	assert.Equal(t, 2, matches.replaceCalls)
	assert.Len(t, fetches.states, 4)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeFetchFailed, errorCode(assert.AnError))
}

func TestHints_AddListRemove(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, _, _, _ := testService(t, fetcher)
	ctx := context.Background()

	added := svc.AddHint(ctx, "Team", "  Strikers ")
	require.Equal(t, StatusOK, added.Status)
	assert.Equal(t, "team", added.HintType)
	assert.Equal(t, "Strikers", added.Value)

	listed := svc.ListHints(ctx, "team")
	require.Equal(t, StatusOK, listed.Status)
	require.Len(t, listed.Hints, 1)
	assert.Equal(t, "Strikers", listed.Hints[0].Value)

	removed := svc.RemoveHint(ctx, "team", "Strikers")
	require.Equal(t, StatusOK, removed.Status)
	assert.True(t, removed.Removed)

	removed = svc.RemoveHint(ctx, "team", "Strikers")
	assert.False(t, removed.Removed)
}

func TestHints_RejectsUnknownType(t *testing.T) {
	fetcher := &fakeFetcher{html: listingPage}
	svc, _, _, _ := testService(t, fetcher)
	ctx := context.Background()

	assert.Equal(t, ErrCodeInvalidHint, svc.AddHint(ctx, "color", "blue").Error)
	assert.Equal(t, ErrCodeInvalidHint, svc.AddHint(ctx, "team", "").Error)
	assert.Equal(t, ErrCodeInvalidHint, svc.RemoveHint(ctx, "color", "blue").Error)
	assert.Equal(t, ErrCodeInvalidHint, svc.ListHints(ctx, "color").Error)
}
