package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/portfolios", handler.CreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios/{id}/assets", handler.GetAssets).Methods("GET")
	api.HandleFunc("/portfolios/{id}/assets/{symbol}/metrics", handler.GetAssetMetrics).Methods("GET")
	api.HandleFunc("/portfolios/{id}/metrics", handler.GetPortfolioMetrics).Methods("GET")
	api.HandleFunc("/portfolios/{id}/transactions", handler.RecordTransaction).Methods("POST")
	api.HandleFunc("/portfolios/{id}/transactions", handler.GetTransactions).Methods("GET")
	api.HandleFunc("/portfolios/{id}/transactions/export", handler.ExportTransactionsCSV).Methods("GET")
	api.HandleFunc("/portfolios/{id}/prices/refresh", handler.RefreshPrices).Methods("POST")

	return r
}
