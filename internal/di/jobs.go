package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/config"
	"github.com/aristath/riskmap/internal/scheduler"
)

// maintenanceSchedule runs database maintenance weekly, Sunday 03:00.
const maintenanceSchedule = "0 0 3 * * 0"

// JobInstances holds the jobs so they can also be triggered manually.
type JobInstances struct {
	RefreshAnalysis     *scheduler.RefreshAnalysisJob
	DatabaseMaintenance *scheduler.DatabaseMaintenanceJob
}

// RegisterJobs creates the jobs and registers them with sched when it is non-nil.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		RefreshAnalysis: scheduler.NewRefreshAnalysisJob(
			container.SyncService,
			container.AnalysisService,
			container.Publisher,
			container.SnapshotRepo,
			log,
		),
		DatabaseMaintenance: scheduler.NewDatabaseMaintenanceJob(log, container.Databases()...),
	}

	if sched == nil {
		return jobs, nil
	}

	if err := sched.AddJob(cfg.RefreshCron, jobs.RefreshAnalysis); err != nil {
		return nil, fmt.Errorf("failed to register refresh job: %w", err)
	}
	if err := sched.AddJob(maintenanceSchedule, jobs.DatabaseMaintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	return jobs, nil
}
