package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset class constants
const (
	AssetClassUSStock = "us_stock"
	AssetClassAUStock = "au_stock"
	AssetClassCrypto  = "crypto"
)

// Asset represents a current holding within a portfolio.
// The position quantity is never negative; (portfolio_id, symbol) is unique.
type Asset struct {
	ID          int              `json:"id"`
	PortfolioID int              `json:"portfolio_id"`
	Symbol      string           `json:"symbol"`
	DisplayName string           `json:"display_name"`
	AssetClass  string           `json:"asset_class"`
	Position    decimal.Decimal  `json:"position"`
	LastPrice   *decimal.Decimal `json:"last_price,omitempty"`
	Sector      string           `json:"sector,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AssetMetrics holds valuation figures derived from an asset's
// transaction history and latest quote.
type AssetMetrics struct {
	Symbol      string          `json:"symbol"`
	MarketValue decimal.Decimal `json:"market_value"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	AverageCost decimal.Decimal `json:"average_cost"`
	ProfitLoss  decimal.Decimal `json:"profit_loss"`
}

// PortfolioMetrics holds portfolio-level valuation aggregates.
type PortfolioMetrics struct {
	AssetsValue decimal.Decimal `json:"assets_value"`
	AssetsCost  decimal.Decimal `json:"assets_cost"`
}
