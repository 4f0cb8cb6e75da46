package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/persistence"
)

const defaultRunListLimit = 50

// RunHandlers serves run history and run detail.
type RunHandlers struct {
	store *persistence.Store
	log   zerolog.Logger
}

// NewRunHandlers creates run handlers backed by the store.
func NewRunHandlers(store *persistence.Store, log zerolog.Logger) *RunHandlers {
	return &RunHandlers{
		store: store,
		log:   log.With().Str("handler", "runs").Logger(),
	}
}

// HandleListRuns handles GET /api/runs?portfolio=&limit=
func (h *RunHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		runs []persistence.RunSummary
		err  error
	)
	if portfolio := r.URL.Query().Get("portfolio"); portfolio != "" {
		runs, err = h.store.ListRuns(r.Context(), domain.PortfolioKey(portfolio))
	} else {
		runs, err = h.store.ListRecentRuns(r.Context(), limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRun handles GET /api/runs/{runID}
func (h *RunHandlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	accounts, err := h.store.LoadAccountResults(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load account results")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	if len(accounts) == 0 {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":   runID,
			"accounts": accounts,
			"count":    len(accounts),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetDiagnostics handles GET /api/runs/{runID}/diagnostics
func (h *RunHandlers) HandleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	diags, err := h.store.LoadDiagnostics(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load diagnostics")
		http.Error(w, "Failed to load diagnostics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":      runID,
			"diagnostics": diags,
			"count":       len(diags),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
