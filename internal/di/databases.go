// Package di wires databases, clients, repositories, services and jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/config"
	"github.com/aristath/riskmap/internal/database"
)

// InitializeDatabases opens history.db and snapshots.db and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// history.db - daily closes, re-downloadable
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileStandard,
		Name:    database.NameHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	// snapshots.db - every published result, append-only
	snapshotsDB, err := database.New(database.Config{
		Path:    cfg.SnapshotsDBPath(),
		Profile: database.ProfileLedger,
		Name:    database.NameSnapshots,
	})
	if err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize snapshots database: %w", err)
	}
	container.SnapshotsDB = snapshotsDB

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}
