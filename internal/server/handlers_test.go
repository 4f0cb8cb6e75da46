package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/engine"
	"github.com/aristath/rebalance/internal/persistence"
	"github.com/aristath/rebalance/internal/rebalance"
)

func seededRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	store := persistence.NewStore(db)

	accountID := domain.AccountID{Institution: "vanguard", AccountNumber: "1001"}
	require.NoError(t, store.SaveRun(engine.PortfolioResult{
		RunID:        "run-1",
		PortfolioKey: "smith",
		Accounts: []engine.AccountOutcome{
			{AccountID: accountID, Result: rebalance.AccountResult{
				Status: rebalance.StatusOK,
				Values: map[domain.Symbol]float64{"VTSAX": 10000},
			}},
		},
	}, time.Now().Add(-time.Second), time.Now()))

	h := NewRunHandlers(store, zerolog.Nop())
	router := chi.NewRouter()
	router.Get("/api/runs", h.HandleListRuns)
	router.Get("/api/runs/{runID}", h.HandleGetRun)
	router.Get("/api/runs/{runID}/diagnostics", h.HandleGetDiagnostics)
	return router
}

func getJSON(t *testing.T, router *chi.Mux, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHandleListRuns(t *testing.T) {
	router := seededRouter(t)

	code, body := getJSON(t, router, "/api/runs")
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestHandleListRuns_FilterByPortfolio(t *testing.T) {
	router := seededRouter(t)

	code, body := getJSON(t, router, "/api/runs?portfolio=nobody")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}

func TestHandleGetRun(t *testing.T) {
	router := seededRouter(t)

	code, body := getJSON(t, router, "/api/runs/run-1")
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]interface{})
	accounts := data["accounts"].([]interface{})
	require.Len(t, accounts, 1)

	account := accounts[0].(map[string]interface{})
	assert.Equal(t, "ok", account["Status"])

	values := account["Values"].(map[string]interface{})
	assert.Equal(t, float64(10000), values["VTSAX"])
}

func TestHandleGetRun_NotFound(t *testing.T) {
	router := seededRouter(t)

	code, _ := getJSON(t, router, "/api/runs/no-such-run")
	assert.Equal(t, http.StatusNotFound, code)
}
