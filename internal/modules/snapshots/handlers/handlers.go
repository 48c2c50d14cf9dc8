// Package handlers provides HTTP handlers for stored analysis results.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/snapshots"
	"github.com/aristath/riskmap/internal/scheduler"
)

// SnapshotReader serves stored analysis results.
type SnapshotReader interface {
	Latest() (*domain.AnalysisResult, *snapshots.Run, error)
	Get(id string) (*domain.AnalysisResult, *snapshots.Run, error)
	List(limit int) ([]snapshots.Run, error)
}

// Refresher runs the sync, analyze and publish cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context) (*scheduler.RefreshOutcome, error)
}

// Handler handles analysis HTTP requests
type Handler struct {
	snapshots SnapshotReader
	refresher Refresher
	log       zerolog.Logger
}

// NewHandler creates a new analysis handler. refresher may be nil, in which
// case manual refresh answers 503.
func NewHandler(snapshots SnapshotReader, refresher Refresher, log zerolog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		refresher: refresher,
		log:       log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleGetLatest returns the newest stored result in the data.json shape.
// GET /api/analysis
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	result, _, err := h.snapshots.Latest()
	if err != nil {
		h.writeSnapshotError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetPeriod returns one horizon of the newest result.
// GET /api/analysis/{period}
func (h *Handler) HandleGetPeriod(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")

	result, _, err := h.snapshots.Latest()
	if err != nil {
		h.writeSnapshotError(w, err)
		return
	}

	pr, ok := result.Periods[period]
	if !ok {
		h.writeError(w, http.StatusNotFound, "period "+period+" not available")
		return
	}
	h.writeJSON(w, http.StatusOK, pr)
}

// HandleListRuns lists stored runs, newest first.
// GET /api/analysis/runs?limit=N
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.snapshots.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list analysis runs")
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// HandleGetRun returns a stored result by run id.
// GET /api/analysis/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	result, _, err := h.snapshots.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeSnapshotError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleRefresh runs a full refresh and reports its outcome.
// POST /api/analysis/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		h.writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}

	outcome, err := h.refresher.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrRefreshInProgress) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Manual refresh failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"status":      "success",
		"generatedAt": outcome.Result.GeneratedAt,
		"periods":     outcome.Result.PeriodLabels(),
		"duration_ms": outcome.Duration.Milliseconds(),
		"sync":        outcome.Sync,
	}
	if outcome.Run != nil {
		response["run_id"] = outcome.Run.ID
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeSnapshotError(w http.ResponseWriter, err error) {
	if errors.Is(err, snapshots.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no analysis available")
		return
	}
	h.log.Error().Err(err).Msg("Failed to read analysis snapshot")
	h.writeError(w, http.StatusInternalServerError, "failed to read analysis")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
