package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kind constants
const (
	TransactionKindBuy  = "buy"
	TransactionKindSell = "sell"
)

// Transaction is an immutable ledger record of a single buy or sell.
// It carries the normalized symbol rather than an asset foreign key so
// the history survives assets being removed and rebuilt.
type Transaction struct {
	ID          int             `json:"id"`
	PortfolioID int             `json:"portfolio_id"`
	AssetSymbol string          `json:"asset_symbol"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ExecutedAt  time.Time       `json:"executed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Notional returns quantity * price, the cash value of the trade.
func (t *Transaction) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
