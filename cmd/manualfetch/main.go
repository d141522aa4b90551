// Command manualfetch forces a refresh of every league document source,
// bypassing the staleness check. Useful after a publisher replaces a PDF
// mid-week or when validating a new deployment.
package main

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/config"
	"github.com/jackwood1/woodfamily-ai/internal/fetch"
	"github.com/jackwood1/woodfamily-ai/internal/llm"
	"github.com/jackwood1/woodfamily-ai/internal/models"
	"github.com/jackwood1/woodfamily-ai/internal/repository"
	"github.com/jackwood1/woodfamily-ai/internal/service"
)

func main() {
	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 1. Validate database connectivity
	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// 2. Build the service without a query cache; a manual run should always
	// hit the sources.
	var completer llm.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAITimeout)
	}

	svc := service.NewService(
		cfg,
		fetch.NewClient(cfg.FetchTimeout),
		completer,
		db.Stats,
		db.Matches,
		db.FetchStates,
		db.Hints,
		nil,
	)

	// 3. Force-refresh every document kind
	log.Info().Msg("Forcing refresh of all league sources...")
	if err := svc.SyncAll(ctx, true); err != nil {
		log.Error().Err(err).Msg("One or more sources failed to refresh")
	}

	// 4. Report stored row counts per source
	kinds := []models.DocumentKind{
		models.KindAverages,
		models.KindStandings,
		models.KindSnapshot,
	}
	for _, kind := range kinds {
		sourceKey := cfg.SourcePrefix + "_" + string(kind)
		count, err := db.Stats.CountForSource(ctx, sourceKey)
		if err != nil {
			log.Error().Err(err).Str("source_key", sourceKey).Msg("Failed to count stored rows")
			continue
		}
		log.Info().Str("source_key", sourceKey).Int("rows", count).Msg("Stored rows")
	}

	log.Info().Msg("Manual fetch complete.")
}
