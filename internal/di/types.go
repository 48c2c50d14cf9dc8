package di

import (
	"github.com/aristath/riskmap/internal/clients/yahoo"
	"github.com/aristath/riskmap/internal/database"
	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/analysis"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/publish"
	"github.com/aristath/riskmap/internal/modules/snapshots"
)

// Container holds all dependencies for the application.
// It is created by Wire() and handed to cmd entry points and the HTTP server.
type Container struct {
	// Databases
	HistoryDB   *database.DB
	SnapshotsDB *database.DB

	// Clients
	YahooClient *yahoo.Client

	// Repositories
	HistoryRepo  *history.Repository
	SnapshotRepo *snapshots.Repository

	// Services
	Universe        domain.Universe
	SyncService     *history.SyncService
	AnalysisService *analysis.Service
	Publisher       *publish.Publisher
}

// Databases lists every open database.
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.HistoryDB, c.SnapshotsDB}
}

// Close closes every open database.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		if db != nil {
			db.Close()
		}
	}
}
