package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/clients/yahoo"
	"github.com/aristath/riskmap/internal/config"
	"github.com/aristath/riskmap/internal/modules/analysis"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/publish"
	"github.com/aristath/riskmap/internal/modules/snapshots"
	"github.com/aristath/riskmap/internal/modules/statistics"
)

// InitializeRepositories creates the repositories over the open databases.
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.HistoryRepo = history.NewRepository(container.HistoryDB.Conn(), log)
	container.SnapshotRepo = snapshots.NewRepository(container.SnapshotsDB.Conn(), log)
}

// InitializeServices loads the universe and builds the pipeline services.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	uf, err := config.LoadUniverse(cfg.UniverseFile)
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}
	container.Universe = uf.Universe()

	method, err := statistics.ParseReturnMethod(cfg.ReturnMethod)
	if err != nil {
		return err
	}

	container.YahooClient = yahoo.NewClient(log)
	container.SyncService = history.NewSyncService(container.HistoryRepo, container.YahooClient, cfg.HistoryStart, cfg.SyncConcurrency, log)
	container.AnalysisService = analysis.NewService(container.Universe, analysis.Config{
		Horizons:       uf.Horizons,
		PeriodsPerYear: uf.Frequency,
		ReturnMethod:   method,
		Parallel:       cfg.ParallelHorizons,
	}, log)

	publisher := publish.NewPublisher(publish.NewFileWriter(cfg.OutputFile, log), log)
	if cfg.WorkbookFile != "" {
		publisher.WithWorkbook(publish.NewWorkbookWriter(cfg.WorkbookFile, log))
	}
	if cfg.R2.Enabled() {
		uploader, err := publish.NewR2Uploader(ctx, publish.R2Options{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			Bucket:          cfg.R2.Bucket,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create R2 uploader: %w", err)
		}
		publisher.WithUploader(uploader, cfg.R2.ObjectKey)
	}
	container.Publisher = publisher

	log.Info().
		Int("assets", len(container.Universe.Assets)).
		Ints("horizons", uf.Horizons).
		Str("return_method", string(method)).
		Bool("workbook", cfg.WorkbookFile != "").
		Bool("r2", cfg.R2.Enabled()).
		Msg("Services initialized")

	return nil
}
