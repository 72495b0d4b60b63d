package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSymbolNotFound indicates the provider could not resolve a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// AssetInfo is the metadata the ledger needs when a symbol is bought
// for the first time.
type AssetInfo struct {
	DisplayName string
	LastPrice   decimal.Decimal
	Sector      string
}

// Provider supplies live quotes and metadata for normalized symbols.
type Provider interface {
	// FetchAssetInfo resolves name, latest price and sector for a
	// symbol. It fails on unresolvable symbols and transport errors.
	FetchAssetInfo(ctx context.Context, symbol, assetClass string) (*AssetInfo, error)

	// FetchLatestPrice returns the latest price, or nil when the symbol
	// cannot be resolved, so bulk refresh callers can skip failed
	// entries instead of aborting.
	FetchLatestPrice(ctx context.Context, symbol, assetClass string) (*decimal.Decimal, error)
}
