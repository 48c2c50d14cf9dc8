// Package history stores daily closing prices and keeps them in sync with a
// market-data provider.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/timeseries"
)

const dateLayout = "2006-01-02"

// Repository provides access to the daily_prices table in history.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history_repository").Logger(),
	}
}

// SyncState is the last sync outcome for one symbol.
type SyncState struct {
	Symbol    string    `json:"symbol"`
	LastSync  time.Time `json:"last_sync"`
	LastError string    `json:"last_error,omitempty"`
}

// Upsert inserts or replaces closes for symbol in a single transaction.
// Returns the number of rows written.
func (r *Repository) Upsert(symbol string, points []timeseries.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(symbol, p.Date.UTC().Format(dateLayout), p.Value); err != nil {
			return 0, fmt.Errorf("failed to upsert %s %s: %w", symbol, p.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit closes for %s: %w", symbol, err)
	}

	r.log.Debug().Str("symbol", symbol).Int("rows", len(points)).Msg("Stored daily closes")
	return len(points), nil
}

// Closes returns every stored close for symbol, oldest first.
func (r *Repository) Closes(symbol string) ([]timeseries.Point, error) {
	rows, err := r.db.Query(`SELECT date, close FROM daily_prices WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query closes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var date string
		var p timeseries.Point
		if err := rows.Scan(&date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		p.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q for %s: %w", date, symbol, err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}

	return points, nil
}

// LastDate returns the most recent stored trading day for symbol.
// ok is false when nothing is stored yet.
func (r *Repository) LastDate(symbol string) (last time.Time, ok bool, err error) {
	var date sql.NullString
	if err := r.db.QueryRow(`SELECT MAX(date) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&date); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last date for %s: %w", symbol, err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}

	last, err = time.Parse(dateLayout, date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad date %q for %s: %w", date.String, symbol, err)
	}
	return last, true, nil
}

// RecordSync stores the outcome of the latest sync attempt for symbol.
func (r *Repository) RecordSync(symbol string, at time.Time, syncErr error) error {
	var msg sql.NullString
	if syncErr != nil {
		msg = sql.NullString{String: syncErr.Error(), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO sync_state (symbol, last_sync, last_error) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET last_sync = excluded.last_sync, last_error = excluded.last_error
	`, symbol, at.UTC().Format(time.RFC3339), msg)
	if err != nil {
		return fmt.Errorf("failed to record sync for %s: %w", symbol, err)
	}
	return nil
}

// SyncStates lists the last sync outcome of every symbol, ordered by symbol.
func (r *Repository) SyncStates() ([]SyncState, error) {
	rows, err := r.db.Query(`SELECT symbol, last_sync, last_error FROM sync_state ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync state: %w", err)
	}
	defer rows.Close()

	var states []SyncState
	for rows.Next() {
		var s SyncState
		var at string
		var msg sql.NullString
		if err := rows.Scan(&s.Symbol, &at, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		s.LastSync, _ = time.Parse(time.RFC3339, at)
		s.LastError = msg.String
		states = append(states, s)
	}

	return states, rows.Err()
}
