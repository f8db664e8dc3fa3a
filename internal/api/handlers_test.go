package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/oi-tracker/internal/ingest"
	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/internal/query"
	"github.com/mohamedkhairy/oi-tracker/internal/session"
	"github.com/mohamedkhairy/oi-tracker/internal/settings"
	"github.com/mohamedkhairy/oi-tracker/internal/source"
	"github.com/mohamedkhairy/oi-tracker/internal/store"
)

// fakeClock treats every UTC calendar day as one trading session.
type fakeClock struct{}

func (fakeClock) SessionOf(t time.Time) session.ID {
	return session.ID(t.UTC().Format("2006-01-02"))
}

func (c fakeClock) IsNewSession(prev session.ID, t time.Time) bool {
	if prev == "" {
		return false
	}
	return c.SessionOf(t) > prev
}

func (c fakeClock) SessionsSince(s session.ID, t time.Time) int {
	from, _ := time.Parse("2006-01-02", string(s))
	to, _ := time.Parse("2006-01-02", string(c.SessionOf(t)))
	n := int(to.Sub(from).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

type testServer struct {
	router http.Handler
	store  *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := store.New(fakeClock{})
	health := ingest.NewHealthTracker()
	pipeline := ingest.NewPipeline(source.NewMockSource([]string{"RELIANCE", "TCS"}, 1), st, health, time.Second)
	engine := query.NewEngine(st, settings.NewStore(), health)
	handler := NewStockHandler(engine, pipeline)
	return &testServer{
		router: NewRouter(handler, func() bool { return st.Count() > 0 }),
		store:  st,
	}
}

func (ts *testServer) seed(t *testing.T, symbol string, baselineOI, currentOI int64) {
	t.Helper()
	inst := models.Instrument{Symbol: symbol, ContractType: models.ContractOptions, Expiry: "26-Mar-2026"}
	now := time.Now().UTC()
	base := models.ObservationPoint{
		TotalOI: baselineOI, CallOI: baselineOI / 2, PutOI: baselineOI - baselineOI/2,
		FuturesVolume: 50_000, UnderlyingValue: 1500, ObservedAt: now.AddDate(0, 0, -1),
	}
	cur := base
	cur.TotalOI = currentOI
	cur.CallOI = currentOI / 2
	cur.PutOI = currentOI - currentOI/2
	cur.ObservedAt = now
	require.NoError(t, ts.store.Record(inst, base))
	require.NoError(t, ts.store.Record(inst, cur))
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestListStocksEmptyStoreReturnsEmptyArray(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/stocks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListStocksReturnsFilteredRows(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "RELIANCE", 1_000_000, 1_205_000) // +20.5%
	ts.seed(t, "TCS", 1_000_000, 1_010_000)      // +1%, below threshold

	rec := ts.do(t, http.MethodGet, "/api/v1/stocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.InstrumentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.InDelta(t, 20.5, rows[0].SessionChangePct, 1e-9)
}

func TestGetStockDetail(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "RELIANCE", 1_000_000, 1_035_000)

	rec := ts.do(t, http.MethodGet, "/api/v1/stock/reliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail models.StockDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "RELIANCE", detail.Symbol)
	assert.Equal(t, int64(1_035_000), detail.CurrentTotalOI)
	assert.InDelta(t, 3.5, detail.OIChangePct, 1e-9)
}

func TestGetStockUnknownSymbol(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/stock/WIPRO", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "not found")
	assert.Equal(t, float64(http.StatusNotFound), body["code"])
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settings.DefaultVariableA, got.VariableA)
	assert.Equal(t, settings.DefaultVariableB, got.VariableB)

	rec = ts.do(t, http.MethodPost, "/api/v1/settings", models.Settings{VariableA: 5.5, VariableB: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5.5, got.VariableA)
	assert.Equal(t, 2.0, got.VariableB)

	rec = ts.do(t, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5.5, got.VariableA)
}

func TestUpdateSettingsRejectsNegative(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/settings", models.Settings{VariableA: -1, VariableB: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Prior settings survive the rejected update.
	rec = ts.do(t, http.MethodGet, "/api/v1/settings", nil)
	var got models.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settings.DefaultVariableA, got.VariableA)
	assert.Equal(t, settings.DefaultVariableB, got.VariableB)
}

func TestUpdateSettingsRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "RELIANCE", 1_000_000, 1_035_000)

	rec := ts.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TrackedInstrumentCount)
	assert.False(t, report.UsingFallbackData)
}

func TestTriggerUpdateRunsOneCycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/trigger-update", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["recorded"])
	assert.Equal(t, 2, ts.store.Count())
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "empty store is not ready")

	ts.seed(t, "RELIANCE", 1_000_000, 1_035_000)
	rec = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
