package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/kafka"
	"github.com/trogers1052/portfolio-tracker/internal/ledger"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	ledger   *ledger.Ledger
	producer *kafka.Producer
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, l *ledger.Ledger, producer *kafka.Producer) *Handler {
	return &Handler{
		db:       db,
		ledger:   l,
		producer: producer,
	}
}

// CreatePortfolio handles POST /portfolios
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	portfolio, err := h.db.EnsurePortfolio(req.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, portfolio)
}

// RecordTransaction handles POST /portfolios/{id}/transactions
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Symbol     string          `json:"symbol"`
		AssetClass string          `json:"asset_class"`
		Kind       string          `json:"kind"`
		Quantity   decimal.Decimal `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		ExecutedAt *time.Time      `json:"executed_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	executedAt := time.Now()
	if req.ExecutedAt != nil {
		executedAt = *req.ExecutedAt
	}

	tx, asset, err := h.ledger.RecordTransaction(r.Context(), portfolioID,
		req.Symbol, req.AssetClass, req.Kind, req.Quantity, req.Price, executedAt)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishTransactionRecorded(r.Context(), tx, asset); err != nil {
			log.Printf("Failed to publish transaction event: %v", err)
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": tx,
		"asset":       asset,
	})
}

// GetAssets handles GET /portfolios/{id}/assets
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	assets, err := h.db.GetAssetsByPortfolio(portfolioID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

// GetAssetMetrics handles GET /portfolios/{id}/assets/{symbol}/metrics
func (h *Handler) GetAssetMetrics(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}
	symbol := mux.Vars(r)["symbol"]

	asset, err := h.db.GetAsset(portfolioID, symbol)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("asset not held: %s", symbol))
		return
	}

	metrics, err := h.ledger.ComputeAssetMetrics(asset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetPortfolioMetrics handles GET /portfolios/{id}/metrics
func (h *Handler) GetPortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	metrics, err := h.ledger.ComputePortfolioMetrics(portfolioID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// GetTransactions handles GET /portfolios/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	txs, err := h.db.GetTransactionsByPortfolio(portfolioID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// RefreshPrices handles POST /portfolios/{id}/prices/refresh
func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.ledger.RefreshPrices(r.Context(), portfolioID)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ExportTransactionsCSV handles GET /portfolios/{id}/transactions/export
func (h *Handler) ExportTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := portfolioIDFromRequest(w, r)
	if !ok {
		return
	}

	txs, err := h.db.GetTransactionsByPortfolio(portfolioID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	// Headers are already sent by the time a write can fail, so a
	// broken connection can only be logged, not turned into a status.
	if err := writeTransactionsCSV(w, txs); err != nil {
		log.Printf("Failed to stream CSV export: %v", err)
	}
}

// writeTransactionsCSV streams the transaction history as CSV.
func writeTransactionsCSV(w io.Writer, txs []*models.Transaction) error {
	writer := csv.NewWriter(w)
	writer.Write([]string{"Timestamp", "Asset", "Type", "Quantity", "Price", "Total"})
	for _, tx := range txs {
		writer.Write([]string{
			tx.ExecutedAt.Format("02/01/2006, 15:04:05"),
			tx.AssetSymbol,
			tx.Kind,
			tx.Quantity.String(),
			tx.Price.StringFixed(2),
			tx.Notional().StringFixed(2),
		})
	}
	writer.Flush()
	return writer.Error()
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusForError maps ledger failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrFutureTimestamp),
		errors.Is(err, ledger.ErrInvalidAssetClass),
		errors.Is(err, ledger.ErrInvalidTransactionKind):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoSuchHolding):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientHolding):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAssetInfoUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func portfolioIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
