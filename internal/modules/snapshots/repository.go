// Package snapshots keeps every published analysis result so the API can
// serve the latest one and list previous runs.
package snapshots

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/utils"
)

// ErrNotFound is returned when no stored run matches.
var ErrNotFound = errors.New("snapshot not found")

// Run describes one stored analysis result.
type Run struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Periods     []string  `json:"periods"`
}

// Repository stores analysis results in snapshots.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "snapshot_repository").Logger(),
	}
}

// Save stores result under a fresh run id.
func (r *Repository) Save(result *domain.AnalysisResult) (*Run, error) {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	run := &Run{
		ID:          uuid.New().String(),
		GeneratedAt: result.GeneratedAt.UTC(),
		Periods:     result.PeriodLabels(),
	}

	_, err = r.db.Exec(`
		INSERT INTO analysis_runs (id, generated_at, periods, payload)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.GeneratedAt.Format(time.RFC3339Nano), strings.Join(run.Periods, ","), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis run: %w", err)
	}

	r.log.Info().Str("run_id", run.ID).Int("periods", len(run.Periods)).Int("bytes", len(payload)).Msg("Stored analysis snapshot")
	return run, nil
}

// Latest returns the most recently generated result.
func (r *Repository) Latest() (*domain.AnalysisResult, *Run, error) {
	row := r.db.QueryRow(`
		SELECT id, generated_at, periods, payload FROM analysis_runs
		ORDER BY generated_at DESC LIMIT 1
	`)
	return scanResult(row)
}

// Get returns the result stored under id.
func (r *Repository) Get(id string) (*domain.AnalysisResult, *Run, error) {
	row := r.db.QueryRow(`SELECT id, generated_at, periods, payload FROM analysis_runs WHERE id = ?`, id)
	return scanResult(row)
}

// List returns up to limit runs, newest first, without payloads.
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, generated_at, periods FROM analysis_runs
		ORDER BY generated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var at, periods string
		if err := rows.Scan(&run.ID, &at, &periods); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		if run.GeneratedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("bad generated_at %q: %w", at, err)
		}
		run.Periods = utils.ParseCSV(periods)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}
	return runs, nil
}

func scanResult(row *sql.Row) (*domain.AnalysisResult, *Run, error) {
	var run Run
	var at, periods string
	var payload []byte

	if err := row.Scan(&run.ID, &at, &periods, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read analysis run: %w", err)
	}

	var err error
	if run.GeneratedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return nil, nil, fmt.Errorf("bad generated_at %q: %w", at, err)
	}
	run.Periods = utils.ParseCSV(periods)

	var result domain.AnalysisResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode run %s: %w", run.ID, err)
	}
	result.GeneratedAt = result.GeneratedAt.UTC()

	return &result, &run, nil
}
