// Package service ties resolution, fetching, extraction, and storage into the
// league data operations. Each document kind runs the same pipeline: resolve
// the current URL, decide whether the stored copy is stale, fetch and extract,
// then replace the stored rows for that source in one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/cache"
	"github.com/jackwood1/woodfamily-ai/internal/config"
	"github.com/jackwood1/woodfamily-ai/internal/extract"
	"github.com/jackwood1/woodfamily-ai/internal/fetch"
	"github.com/jackwood1/woodfamily-ai/internal/llm"
	"github.com/jackwood1/woodfamily-ai/internal/metrics"
	"github.com/jackwood1/woodfamily-ai/internal/models"
	"github.com/jackwood1/woodfamily-ai/internal/resolve"
)

// Error codes surfaced in result payloads. Callers branch on these rather
// than on wrapped error text.
const (
	ErrCodeSourceNotFound = "source_url_not_found"
	ErrCodeBadContent     = "expected_pdf_response"
	ErrCodeLLMTimeout     = "llm_timeout"
	ErrCodeTeamRequired   = "team_name_required"
	ErrCodeFetchFailed    = "fetch_failed"
)

// Fetcher retrieves listing pages and league documents.
type Fetcher interface {
	FetchPDF(ctx context.Context, url string) ([]byte, error)
	FetchHTML(ctx context.Context, url string) (string, error)
}

// StatStore persists and queries normalized stat rows.
type StatStore interface {
	ReplaceForSource(ctx context.Context, sourceKey string, records []*models.StatRecord) error
	List(ctx context.Context, sourceKey, teamName, playerName string) ([]*models.StatRecord, error)
}

// MatchStore persists and queries schedule rows.
type MatchStore interface {
	ReplaceForSource(ctx context.Context, sourceKey string, records []*models.MatchRecord) error
	List(ctx context.Context, sourceKey, teamName, dateFrom, dateTo string) ([]*models.MatchRecord, error)
}

// FetchStateStore tracks the last successful fetch per source key.
type FetchStateStore interface {
	Get(ctx context.Context, sourceKey string) (*models.FetchState, error)
	Upsert(ctx context.Context, state *models.FetchState) error
}

// Service exposes the league data operations.
type Service struct {
	cfg     *config.Config
	fetcher Fetcher
	llm     llm.Completer
	stats   StatStore
	matches MatchStore
	fetches FetchStateStore
	hints   HintStore
	cache   *cache.Cache

	// now is swappable for tests.
	now func() time.Time
}

// NewService wires the league data service. The completer and cache may be
// nil; extraction then runs structural-only and queries skip the cache.
func NewService(
	cfg *config.Config,
	fetcher Fetcher,
	completer llm.Completer,
	stats StatStore,
	matches MatchStore,
	fetches FetchStateStore,
	hints HintStore,
	queryCache *cache.Cache,
) *Service {
	return &Service{
		cfg:     cfg,
		fetcher: fetcher,
		llm:     completer,
		stats:   stats,
		matches: matches,
		fetches: fetches,
		hints:   hints,
		cache:   queryCache,
		now:     time.Now,
	}
}

// sourceKey namespaces stored rows per document kind, e.g. "bowling_averages".
func (s *Service) sourceKey(kind models.DocumentKind) string {
	return s.cfg.SourcePrefix + "_" + string(kind)
}

func (s *Service) overrideFor(kind models.DocumentKind) string {
	switch kind {
	case models.KindAverages:
		return s.cfg.AveragesURL
	case models.KindSchedule:
		return s.cfg.ScheduleURL
	case models.KindStandings:
		return s.cfg.StandingsURL
	case models.KindSnapshot:
		return s.cfg.SnapshotURL
	}
	return ""
}

// resolveURL locates the current document URL for a kind. The listing page is
// only fetched when no override is configured.
func (s *Service) resolveURL(ctx context.Context, kind models.DocumentKind) (string, error) {
	override := s.overrideFor(kind)
	if override != "" {
		return override, nil
	}

	listingHTML, err := s.fetcher.FetchHTML(ctx, s.cfg.ListingURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch listing page: %w", err)
	}

	return resolve.Resolve(listingHTML, s.cfg.ListingURL, kind.Keyword(), "")
}

// ensureFresh refreshes one document kind when its stored copy is stale.
// Returns true when a refresh actually ran.
func (s *Service) ensureFresh(ctx context.Context, kind models.DocumentKind, force bool) (bool, error) {
	sourceKey := s.sourceKey(kind)

	state, err := s.fetches.Get(ctx, sourceKey)
	if err != nil {
		return false, err
	}

	sourceURL, err := s.resolveURL(ctx, kind)
	if err != nil {
		return false, err
	}

	if !force && !models.ShouldRefresh(state, kind, sourceURL, s.cfg.RefreshInterval(), s.now()) {
		log.Debug().
			Str("source_key", sourceKey).
			Str("url", sourceURL).
			Msg("Stored copy is fresh, skipping fetch")
		return false, nil
	}

	start := time.Now()
	if err := s.refresh(ctx, kind, sourceKey, sourceURL, state); err != nil {
		metrics.SourceRefreshesTotal.WithLabelValues(string(kind), "error").Inc()
		return false, err
	}

	metrics.SourceRefreshesTotal.WithLabelValues(string(kind), "ok").Inc()
	log.Info().
		Str("source_key", sourceKey).
		Str("url", sourceURL).
		Dur("duration", time.Since(start)).
		Msg("Source refreshed")

	if s.cache != nil {
		s.cache.Invalidate(ctx, "queries")
	}
	return true, nil
}

// refresh fetches the document, extracts rows for the kind, and replaces the
// stored rows. The fetch state is only advanced after the rows are stored, so
// a failed extraction retries on the next call.
func (s *Service) refresh(ctx context.Context, kind models.DocumentKind, sourceKey, sourceURL string, state *models.FetchState) error {
	data, err := s.fetcher.FetchPDF(ctx, sourceURL)
	if err != nil {
		return err
	}

	filePath := s.writeCacheFile(sourceKey, data)

	switch kind {
	case models.KindAverages:
		err = s.storeAverages(ctx, sourceKey, data)
	case models.KindSchedule:
		err = s.storeSchedule(ctx, sourceKey, data)
	case models.KindStandings:
		err = s.storeStandings(ctx, sourceKey, data)
	case models.KindSnapshot:
		err = s.storeSnapshot(ctx, sourceKey, data)
	default:
		err = fmt.Errorf("unknown document kind %q", kind)
	}
	if err != nil {
		return err
	}

	if state == nil {
		state = &models.FetchState{SourceKey: sourceKey}
	}
	state.LastFetchAt = s.now()
	state.SetURLForKind(kind, sourceURL)
	state.FilePath = models.NullStr(filePath)

	return s.fetches.Upsert(ctx, state)
}

// writeCacheFile keeps the raw PDF on disk for query-time re-extraction.
// Failure to write is logged and tolerated; the pipeline works without it.
func (s *Service) writeCacheFile(sourceKey string, data []byte) string {
	if s.cfg.CacheDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", s.cfg.CacheDir).Msg("Failed to create cache directory")
		return ""
	}
	filePath := filepath.Join(s.cfg.CacheDir, sourceKey+".pdf")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", filePath).Msg("Failed to write cached document")
		return ""
	}
	return filePath
}

// cachedText re-extracts the text of the last fetched document for a source.
func (s *Service) cachedText(ctx context.Context, sourceKey string) string {
	state, err := s.fetches.Get(ctx, sourceKey)
	if err != nil || state == nil || !state.FilePath.Valid {
		return ""
	}
	data, err := os.ReadFile(state.FilePath.String)
	if err != nil {
		log.Debug().Err(err).Str("path", state.FilePath.String).Msg("Cached document unreadable")
		return ""
	}
	text, err := extract.Text(data)
	if err != nil {
		return ""
	}
	return text
}

// cachedTables re-extracts the table grids of the last fetched document.
func (s *Service) cachedTables(ctx context.Context, sourceKey string) [][][]string {
	state, err := s.fetches.Get(ctx, sourceKey)
	if err != nil || state == nil || !state.FilePath.Valid {
		return nil
	}
	data, err := os.ReadFile(state.FilePath.String)
	if err != nil {
		return nil
	}
	tables, err := extract.Tables(data)
	if err != nil {
		return nil
	}
	return tables
}

// storeAverages extracts bowler averages and replaces the stored rows.
func (s *Service) storeAverages(ctx context.Context, sourceKey string, data []byte) error {
	tables, err := extract.Tables(data)
	if err != nil {
		log.Warn().Err(err).Str("source_key", sourceKey).Msg("Table extraction failed")
	}

	text, textErr := extract.Text(data)
	if textErr != nil {
		log.Warn().Err(textErr).Str("source_key", sourceKey).Msg("Text extraction failed")
	}

	rows := s.bowlerRows(ctx, sourceKey, tables, text)

	records := make([]*models.StatRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, statRecordFromRow(sourceKey, row))
	}

	log.Info().
		Str("source_key", sourceKey).
		Int("rows", len(records)).
		Msg("Averages extracted")

	return s.stats.ReplaceForSource(ctx, sourceKey, records)
}

// bowlerRows applies the extraction tiers in order. When the structural
// table pass finds any rows, those rows are the result; the text pass and
// the completer only run when it finds nothing, with model rows merged over
// whatever the text pass produced. An LLM timeout keeps the local rows.
func (s *Service) bowlerRows(ctx context.Context, sourceKey string, tables [][][]string, text string) []extract.StatRow {
	rows := extract.Bowlers(tables)
	metrics.ExtractionRowsTotal.WithLabelValues("averages", "table").Add(float64(len(rows)))
	if len(rows) > 0 || text == "" {
		return rows
	}

	rows = extract.BowlersFromText(text)
	metrics.ExtractionRowsTotal.WithLabelValues("averages", "text").Add(float64(len(rows)))

	if s.llm != nil {
		llmRows, llmErr := llm.ExtractBowlers(ctx, s.llm, text)
		if llmErr != nil {
			log.Warn().Err(llmErr).Str("source_key", sourceKey).Msg("LLM stats extraction failed, keeping local rows")
		}
		if len(llmRows) > 0 {
			metrics.ExtractionRowsTotal.WithLabelValues("averages", "llm").Add(float64(len(llmRows)))
			rows = llm.MergeWithLocal(rows, llmRows)
		}
	}
	return rows
}

// storeSchedule extracts the full league schedule grid and replaces the
// stored matches. Text parsing backstops the structural pass.
func (s *Service) storeSchedule(ctx context.Context, sourceKey string, data []byte) error {
	tables, err := extract.Tables(data)
	if err != nil {
		log.Warn().Err(err).Str("source_key", sourceKey).Msg("Table extraction failed")
	}

	matchRows := extract.Schedule(tables)
	metrics.ExtractionRowsTotal.WithLabelValues("schedule", "table").Add(float64(len(matchRows)))

	if len(matchRows) == 0 {
		if text, textErr := extract.Text(data); textErr == nil {
			matchRows = extract.ScheduleFromText(text)
			metrics.ExtractionRowsTotal.WithLabelValues("schedule", "text").Add(float64(len(matchRows)))
		}
	}

	matchRows = extract.DedupeMatches(matchRows)

	records := make([]*models.MatchRecord, 0, len(matchRows))
	for _, row := range matchRows {
		records = append(records, matchRecordFromRow(sourceKey, row))
	}

	log.Info().
		Str("source_key", sourceKey).
		Int("matches", len(records)).
		Msg("Schedule extracted")

	return s.matches.ReplaceForSource(ctx, sourceKey, records)
}

// storeStandings extracts the standings table and replaces the stored rows.
// When no structural table matches, the standings section of the document
// text goes to the completer.
func (s *Service) storeStandings(ctx context.Context, sourceKey string, data []byte) error {
	tables, err := extract.Tables(data)
	if err != nil {
		log.Warn().Err(err).Str("source_key", sourceKey).Msg("Table extraction failed")
	}

	standings := extract.Standings(tables)
	metrics.ExtractionRowsTotal.WithLabelValues("standings", "table").Add(float64(len(standings)))

	if len(standings) == 0 && s.llm != nil {
		if text, textErr := extract.Text(data); textErr == nil && text != "" {
			standingsText, _ := extract.SplitSections(text)
			if standingsText == "" {
				standingsText = text
			}
			llmRows, llmErr := llm.ExtractStandings(ctx, s.llm, standingsText)
			if llmErr != nil {
				log.Warn().Err(llmErr).Str("source_key", sourceKey).Msg("LLM standings extraction failed")
			}
			standings = llmRows
			metrics.ExtractionRowsTotal.WithLabelValues("standings", "llm").Add(float64(len(standings)))
		}
	}

	standings = extract.DedupeStandings(standings)

	records := make([]*models.StatRecord, 0, len(standings))
	for _, row := range standings {
		records = append(records, statRecordFromStanding(sourceKey, row))
	}

	log.Info().
		Str("source_key", sourceKey).
		Int("rows", len(records)).
		Msg("Standings extracted")

	return s.stats.ReplaceForSource(ctx, sourceKey, records)
}

// storeSnapshot handles the combined schedule+standings document: both row
// families are extracted from the one PDF and stored under the same source.
func (s *Service) storeSnapshot(ctx context.Context, sourceKey string, data []byte) error {
	tables, err := extract.Tables(data)
	if err != nil {
		log.Warn().Err(err).Str("source_key", sourceKey).Msg("Table extraction failed")
	}

	standings := extract.DedupeStandings(extract.Standings(tables))
	metrics.ExtractionRowsTotal.WithLabelValues("snapshot", "table").Add(float64(len(standings)))

	statRecords := make([]*models.StatRecord, 0, len(standings))
	for _, row := range standings {
		statRecords = append(statRecords, statRecordFromStanding(sourceKey, row))
	}
	if err := s.stats.ReplaceForSource(ctx, sourceKey, statRecords); err != nil {
		return err
	}

	matchRows := extract.DedupeMatches(extract.Schedule(tables))
	matchRecords := make([]*models.MatchRecord, 0, len(matchRows))
	for _, row := range matchRows {
		matchRecords = append(matchRecords, matchRecordFromRow(sourceKey, row))
	}

	log.Info().
		Str("source_key", sourceKey).
		Int("standings", len(statRecords)).
		Int("matches", len(matchRecords)).
		Msg("Snapshot extracted")

	return s.matches.ReplaceForSource(ctx, sourceKey, matchRecords)
}

// SyncAll refreshes every document kind. Individual failures are logged and
// do not stop the remaining kinds; the first error is returned.
func (s *Service) SyncAll(ctx context.Context, force bool) error {
	kinds := []models.DocumentKind{
		models.KindAverages,
		models.KindSchedule,
		models.KindStandings,
		models.KindSnapshot,
	}

	var firstErr error
	for _, kind := range kinds {
		refreshed, err := s.ensureFresh(ctx, kind, force)
		if err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("Source refresh failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().
			Str("kind", string(kind)).
			Bool("refreshed", refreshed).
			Msg("Source sync complete")
	}
	return firstErr
}

// errorCode maps pipeline errors onto the stable codes in result payloads.
func errorCode(err error) string {
	var contentErr *fetch.ContentError
	switch {
	case errors.Is(err, resolve.ErrNotFound):
		return ErrCodeSourceNotFound
	case errors.As(err, &contentErr):
		return ErrCodeBadContent
	case errors.Is(err, llm.ErrTimeout):
		return ErrCodeLLMTimeout
	}
	return ErrCodeFetchFailed
}
