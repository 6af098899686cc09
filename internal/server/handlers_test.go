package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwpg/orbit/internal/config"
	"github.com/iwpg/orbit/internal/models"
	"github.com/iwpg/orbit/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snapshot models.Snapshot
}

func (s *staticSource) Status() models.Snapshot {
	return s.snapshot
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Retention = 30 * 24 * time.Hour
	cfg.Poll.MaxLookback = 30 * 24 * time.Hour
	cfg.RateLimit.Count = 100
	cfg.RateLimit.Window = time.Minute

	return cfg
}

func testServer(t *testing.T, cfg *config.Config, snapshot models.Snapshot) (*Server, *storage.Repository) {
	t.Helper()

	repo, err := storage.New(filepath.Join(t.TempDir(), "orbit-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return New(&staticSource{snapshot: snapshot}, repo, nil, cfg), repo
}

func TestStatusEndpoint(t *testing.T) {
	snapshot := models.Snapshot{
		FetchedAt: time.Now(),
		Instances: []models.Instance{
			{ID: "i1", FriendlyName: "Wasteland 1", Players: models.Players{Current: 12, Max: 64}},
		},
		TotalPlayers: 12,
		TotalMax:     64,
	}
	srv, _ := testServer(t, testConfig(), snapshot)

	rec := httptest.NewRecorder()
	srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Instances, 1)
	assert.Equal(t, 12, got.TotalPlayers)
	assert.Equal(t, 64, got.TotalMax)
}

func TestStatusEndpointEmptySnapshot(t *testing.T) {
	srv, _ := testServer(t, testConfig(), models.Snapshot{})

	rec := httptest.NewRecorder()
	srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// Instances serializes as [], not null
	assert.Contains(t, rec.Body.String(), `"instances":[]`)
}

func TestHistoryEndpoint(t *testing.T) {
	srv, repo := testServer(t, testConfig(), models.Snapshot{})

	now := time.Now()
	require.NoError(t, repo.AppendSamples([]models.Sample{
		{Timestamp: now.Add(-2 * time.Hour), InstanceID: "i1", InstanceName: "Wasteland 1", Players: 10, MemoryMax: 8192, MemoryValue: 4096},
		{Timestamp: now.Add(-30 * time.Hour), InstanceID: "i1", InstanceName: "Wasteland 1", Players: 99, MemoryMax: 8192, MemoryValue: 4096},
	}))

	rec := httptest.NewRecorder()
	srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?hours=24", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var series map[string]models.Series
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 1)

	// The 30h-old sample is outside the requested window
	s1 := series["i1"]
	require.Len(t, s1.Players, 1)
	assert.Equal(t, 10, s1.Players[0])
}

func TestHistoryEndpointClampsLookback(t *testing.T) {
	cfg := testConfig()
	cfg.Poll.MaxLookback = 24 * time.Hour
	srv, repo := testServer(t, cfg, models.Snapshot{})

	now := time.Now()
	require.NoError(t, repo.AppendSamples([]models.Sample{
		{Timestamp: now.Add(-48 * time.Hour), InstanceID: "i1", InstanceName: "W1", Players: 5},
		{Timestamp: now.Add(-time.Hour), InstanceID: "i1", InstanceName: "W1", Players: 7},
	}))

	rec := httptest.NewRecorder()
	srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?hours=720", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var series map[string]models.Series
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series["i1"].Players, 1)
	assert.Equal(t, 7, series["i1"].Players[0])
}

func TestHistoryEndpointInvalidHours(t *testing.T) {
	srv, _ := testServer(t, testConfig(), models.Snapshot{})

	for _, raw := range []string{"abc", "-1", "0"} {
		rec := httptest.NewRecorder()
		srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?hours="+raw, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "hours=%s", raw)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AuthToken = "hunter2"
	srv, _ := testServer(t, cfg, models.Snapshot{})
	handler := srv.Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndexServesBuildInfo(t *testing.T) {
	srv, _ := testServer(t, testConfig(), models.Snapshot{})

	rec := httptest.NewRecorder()
	srv.Run().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Orbit"`)
}
