package snapshots

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskmap/internal/domain"
)

func setupSnapshotTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE analysis_runs (
			id TEXT PRIMARY KEY,
			generated_at TEXT NOT NULL,
			periods TEXT NOT NULL,
			payload BLOB NOT NULL
		) STRICT
	`)
	require.NoError(t, err)
	return db
}

func sampleResult(at time.Time) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		GeneratedAt: at,
		TickerOrder: []string{"A", "B"},
		Periods: map[string]domain.PeriodResult{
			"10y": {
				Assets:           []domain.AssetStatistic{{Name: "A", Return: 0.05, Risk: 0.1}},
				CovarianceMatrix: domain.CovarianceMatrix{{0.01}},
			},
			"1y": {
				Assets: []domain.AssetStatistic{
					{Name: "A", Return: 0.04, Risk: 0.12},
					{Name: "B", Return: -0.01, Risk: 0.2},
				},
				CovarianceMatrix: domain.CovarianceMatrix{{0.0144, 0.001}, {0.001, 0.04}},
			},
		},
	}
}

func TestRepository_LatestEmpty(t *testing.T) {
	repo := NewRepository(setupSnapshotTestDB(t), zerolog.Nop())

	_, _, err := repo.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := repo.List(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRepository_SaveAndLatest(t *testing.T) {
	repo := NewRepository(setupSnapshotTestDB(t), zerolog.Nop())

	older := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	first, err := repo.Save(sampleResult(older))
	require.NoError(t, err)
	second, err := repo.Save(sampleResult(newer))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"1y", "10y"}, second.Periods)

	latest, run, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, run.ID)
	assert.Equal(t, sampleResult(newer), latest)

	got, run, err := repo.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, older, run.GeneratedAt)
	assert.Equal(t, older, got.GeneratedAt)

	_, _, err = repo.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := repo.List(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}
