package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/oi-tracker/internal/ingest"
	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/internal/query"
	"github.com/mohamedkhairy/oi-tracker/pkg/logger"
)

// StockHandler serves the OI list, detail, settings and status endpoints.
type StockHandler struct {
	engine   *query.Engine
	pipeline *ingest.Pipeline
}

// NewStockHandler creates a stock handler.
func NewStockHandler(engine *query.Engine, pipeline *ingest.Pipeline) *StockHandler {
	return &StockHandler{
		engine:   engine,
		pipeline: pipeline,
	}
}

// ListStocks handles GET /api/v1/stocks
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks := h.engine.ListFiltered()
	if stocks == nil {
		stocks = []models.InstrumentView{}
	}
	respondWithJSON(w, http.StatusOK, stocks)
}

// GetStock handles GET /api/v1/stock/{symbol}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	detail, err := h.engine.GetDetail(symbol)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Stock data not found or not yet processed")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve stock detail")
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// GetSettings handles GET /api/v1/settings
func (h *StockHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.GetSettings())
}

// UpdateSettings handles POST /api/v1/settings
func (h *StockHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body models.Settings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.engine.SetSettings(body.VariableA, body.VariableB)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSettings) {
			respondWithError(w, http.StatusBadRequest, "Thresholds must be non-negative")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	logger.Info("Settings updated",
		logger.Float64("variable_a", updated.VariableA),
		logger.Float64("variable_b", updated.VariableB),
	)

	respondWithJSON(w, http.StatusOK, updated)
}

// GetStatus handles GET /api/v1/status
func (h *StockHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Status())
}

// TriggerUpdate handles POST /api/v1/trigger-update
// Used by the external cron worker to drive one ingestion cycle.
func (h *StockHandler) TriggerUpdate(w http.ResponseWriter, r *http.Request) {
	result := h.pipeline.RunCycle(r.Context())

	status := "success"
	if result.Skipped {
		status = "skipped"
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"recorded":  result.Recorded,
		"rejected":  result.Rejected,
		"timestamp": result.RanAt,
	})
}
