package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/karstlabs/platform-infra/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleReport(env string, severity types.Severity) types.DriftReport {
	return types.DriftReport{
		RunID:       "01HZX" + env,
		Environment: env,
		Stack:       env,
		Severity:    severity,
		Drifted:     severity != types.SeverityOK,
		StartedAt:   time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
	}
}

func setupTestServer(t *testing.T, apiKey string) (*httptest.Server, *Store) {
	t.Helper()
	store := NewStore()
	srv := New(":0", store, apiKey, 1<<20, nil)

	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return ts, store
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t, "")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestLatestReports(t *testing.T) {
	ts, store := setupTestServer(t, "")
	store.Put(sampleReport("staging", types.SeverityWarning))
	store.Put(sampleReport("dev", types.SeverityOK))
	store.Put(sampleReport("staging", types.SeverityCritical))

	resp, err := http.Get(ts.URL + "/reports")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reports []types.DriftReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "dev", reports[0].Environment)
	assert.Equal(t, "staging", reports[1].Environment)
	assert.Equal(t, types.SeverityCritical, reports[1].Severity)
}

func TestEnvironmentHistory(t *testing.T) {
	ts, store := setupTestServer(t, "")
	store.Put(sampleReport("prod", types.SeverityOK))
	store.Put(sampleReport("prod", types.SeverityWarning))

	resp, err := http.Get(ts.URL + "/reports/prod")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reports []types.DriftReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reports))
	require.Len(t, reports, 2)
	assert.Equal(t, types.SeverityWarning, reports[0].Severity)
}

func TestUnknownEnvironment(t *testing.T) {
	ts, _ := setupTestServer(t, "")

	resp, err := http.Get(ts.URL + "/reports/nowhere")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIKeyRequired(t *testing.T) {
	ts, store := setupTestServer(t, "sekrit")
	store.Put(sampleReport("dev", types.SeverityOK))

	resp, err := http.Get(ts.URL + "/reports")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/reports", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// health stays open
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpvarExposed(t *testing.T) {
	ts, _ := setupTestServer(t, "")

	resp, err := http.Get(ts.URL + "/debug/vars")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vars map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vars))
	assert.Contains(t, vars, "drift_runs_total")
}

func TestStoreHistoryLimit(t *testing.T) {
	store := NewStore()
	for i := 0; i < historyLimit+10; i++ {
		store.Put(sampleReport("dev", types.SeverityOK))
	}

	history, ok := store.History("dev")
	require.True(t, ok)
	assert.Len(t, history, historyLimit)
}

func TestRequestIDHeader(t *testing.T) {
	ts, _ := setupTestServer(t, "")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	srv := New(":0", NewStore(), "", 1<<20, logger)

	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/reports", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line["requestId"])
	assert.Equal(t, "/reports", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}
