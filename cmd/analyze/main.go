// Command analyze runs one refresh (sync, analyze, publish, snapshot) and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/riskmap/internal/config"
	"github.com/aristath/riskmap/internal/di"
	"github.com/aristath/riskmap/pkg/logger"
)

func main() {
	offline := flag.Bool("offline", false, "skip downloading and analyze stored history only")
	output := flag.String("o", "", "override the output document path")
	flag.Parse()

	if *output != "" {
		os.Setenv("RISKMAP_OUTPUT_FILE", *output)
	}

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, jobs, err := di.Wire(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if *offline {
		symbols := container.Universe.Symbols()
		raw, err := container.SyncService.RawTable(symbols)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build raw table")
		}
		result, err := container.AnalysisService.Run(raw)
		if err != nil {
			log.Fatal().Err(err).Msg("Analysis failed")
		}
		if err := container.Publisher.Publish(ctx, result); err != nil {
			log.Fatal().Err(err).Msg("Publish failed")
		}
		log.Info().Strs("periods", result.PeriodLabels()).Msg("Offline analysis written")
		return
	}

	outcome, err := jobs.RefreshAnalysis.Refresh(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Refresh failed")
	}

	log.Info().
		Str("run_id", outcome.Run.ID).
		Strs("periods", outcome.Result.PeriodLabels()).
		Int("failed_symbols", len(outcome.Sync.Failed)).
		Dur("duration", outcome.Duration).
		Msg("Analysis written")
}
