package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/riskmap/internal/database"
)

// SystemHandlers serves process, host and storage status.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	syncState SyncStateReader
	databases []*database.DB
	startedAt time.Time
}

// NewSystemHandlers creates system handlers. syncState and databases may be nil/empty.
func NewSystemHandlers(log zerolog.Logger, dataDir string, syncState SyncStateReader, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		syncState: syncState,
		databases: databases,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse represents process and host status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskFreeMB    float64 `json:"disk_free_mb,omitempty"`
	DiskUsedPct   float64 `json:"disk_used_percent,omitempty"`
	LastChecked   string  `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Profile string          `json:"profile"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// HandleSystemStatus returns uptime, CPU, memory and disk usage.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		LastChecked:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.dataDir != "" {
		if _, err := os.Stat(h.dataDir); err == nil {
			if usage, err := disk.Usage(h.dataDir); err == nil {
				response.DiskFreeMB = float64(usage.Free) / 1024 / 1024
				response.DiskUsedPct = usage.UsedPercent
			} else {
				h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
			}
		}
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns health and size of every open database.
// GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	infos := []DBInfo{}
	for _, db := range h.databases {
		if db == nil {
			continue
		}
		info := DBInfo{Name: db.Name(), Path: db.Path(), Profile: string(db.Profile()), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			info.Healthy = false
			info.Error = err.Error()
		}
		if stats, err := db.GetStats(); err == nil {
			info.Stats = stats
		}
		infos = append(infos, info)
	}

	h.writeJSON(w, map[string]interface{}{
		"databases":    infos,
		"last_checked": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSyncStatus returns the last download outcome per symbol.
// GET /api/system/sync
func (h *SystemHandlers) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncState == nil {
		h.writeJSON(w, map[string]interface{}{"symbols": []interface{}{}})
		return
	}

	states, err := h.syncState.SyncStates()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read sync state")
		http.Error(w, "Failed to read sync state", http.StatusInternalServerError)
		return
	}

	failed := 0
	for _, s := range states {
		if s.LastError != "" {
			failed++
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"symbols": states,
		"failed":  failed,
	})
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the request fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
