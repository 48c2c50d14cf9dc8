package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskmap/internal/database"
	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/snapshots"
	testingpkg "github.com/aristath/riskmap/internal/testing"
)

type emptySnapshots struct{}

func (emptySnapshots) Latest() (*domain.AnalysisResult, *snapshots.Run, error) {
	return nil, nil, snapshots.ErrNotFound
}

func (emptySnapshots) Get(string) (*domain.AnalysisResult, *snapshots.Run, error) {
	return nil, nil, snapshots.ErrNotFound
}

func (emptySnapshots) List(int) ([]snapshots.Run, error) { return nil, nil }

type fakeSyncState struct{}

func (fakeSyncState) SyncStates() ([]history.SyncState, error) {
	return []history.SyncState{
		{Symbol: "1348.T"},
		{Symbol: "QQQ", LastError: "timeout"},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{
		Log:       zerolog.Nop(),
		DevMode:   true,
		DataDir:   t.TempDir(),
		Snapshots: emptySnapshots{},
		SyncState: fakeSyncState{},
	})
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestAnalysisRoutesMounted(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/analysis").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodPost, "/api/analysis/refresh").Code)
}

func TestSystemStatus(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.GoVersion)
	assert.GreaterOrEqual(t, resp.MemoryPercent, 0.0)
}

func TestSystemSync(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/system/sync")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Symbols []history.SyncState `json:"symbols"`
		Failed  int                 `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Symbols, 2)
	assert.Equal(t, 1, resp.Failed)
}

func TestSystemDatabases(t *testing.T) {
	db := testingpkg.NewTestDB(t, database.NameHistory)

	s := New(Config{Log: zerolog.Nop(), DevMode: true, Snapshots: emptySnapshots{}, Databases: []*database.DB{db}})
	rec := do(t, s, http.MethodGet, "/api/system/databases")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Databases []DBInfo `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Databases, 1)
	assert.Equal(t, "history", resp.Databases[0].Name)
	assert.True(t, resp.Databases[0].Healthy)
}
