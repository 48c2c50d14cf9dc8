package scheduler

import (
	"context"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/snapshots"
	"github.com/aristath/riskmap/internal/timeseries"
)

// HistorySyncer downloads missing closes and assembles the raw price table.
type HistorySyncer interface {
	Sync(ctx context.Context, symbols []string) (*history.SyncReport, error)
	RawTable(symbols []string) (*timeseries.Table, error)
}

// Analyzer runs the statistics pipeline over a raw price table.
type Analyzer interface {
	Universe() domain.Universe
	Run(raw *timeseries.Table) (*domain.AnalysisResult, error)
}

// ResultPublisher writes a result to its destinations.
type ResultPublisher interface {
	Publish(ctx context.Context, result *domain.AnalysisResult) error
}

// SnapshotStore records published results.
type SnapshotStore interface {
	Save(result *domain.AnalysisResult) (*snapshots.Run, error)
}
