package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP router for the API service. The ready func
// reports whether the service can serve data (used by /ready).
func NewRouter(h *StockHandler, ready func() bool) *mux.Router {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stocks", h.ListStocks).Methods("GET")
	v1.HandleFunc("/stock/{symbol}", h.GetStock).Methods("GET")
	v1.HandleFunc("/settings", h.GetSettings).Methods("GET")
	v1.HandleFunc("/settings", h.UpdateSettings).Methods("POST")
	v1.HandleFunc("/status", h.GetStatus).Methods("GET")
	v1.HandleFunc("/trigger-update", h.TriggerUpdate).Methods("POST")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	router.Handle("/metrics", promhttp.Handler())

	return router
}
