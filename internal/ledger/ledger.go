package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/marketdata"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// firstBuyAttempts bounds the retries taken when two first buys of the
// same symbol race on the unique (portfolio, symbol) index. One retry
// is enough once the winner commits; the bound guards against a store
// that keeps reporting the conflict.
const firstBuyAttempts = 3

// Ledger applies buy/sell transactions to a portfolio's holdings and
// derives valuation metrics from the accumulated history. All state
// lives behind the Store; the market data provider is consulted only
// when a symbol is bought for the first time.
type Ledger struct {
	store    Store
	provider marketdata.Provider
	now      func() time.Time
}

// New creates a Ledger backed by the given store and provider.
func New(store Store, provider marketdata.Provider) *Ledger {
	return &Ledger{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
}

// RecordTransaction validates and applies a proposed transaction,
// returning the appended transaction record and the resulting asset
// state. The asset mutation and the transaction append commit
// atomically; on any failure nothing is persisted.
func (l *Ledger) RecordTransaction(ctx context.Context, portfolioID int, rawSymbol, assetClass, kind string, quantity, price decimal.Decimal, executedAt time.Time) (*models.Transaction, *models.Asset, error) {
	return l.record(ctx, portfolioID, rawSymbol, assetClass, kind, quantity, price, executedAt, nil)
}

// RecordImportedTransaction is RecordTransaction for trades ingested
// from an external broker feed: the (orderID, source) import mark
// commits in the same unit of work as the ledger mutation, so a
// redelivered event can never apply twice.
func (l *Ledger) RecordImportedTransaction(ctx context.Context, portfolioID int, orderID, source, rawSymbol, assetClass, kind string, quantity, price decimal.Decimal, executedAt time.Time) (*models.Transaction, *models.Asset, error) {
	return l.record(ctx, portfolioID, rawSymbol, assetClass, kind, quantity, price, executedAt, func(uow UnitOfWork) error {
		return uow.MarkTradeImported(orderID, source)
	})
}

func (l *Ledger) record(ctx context.Context, portfolioID int, rawSymbol, assetClass, kind string, quantity, price decimal.Decimal, executedAt time.Time, mark func(UnitOfWork) error) (*models.Transaction, *models.Asset, error) {
	// First failing check wins: quantity, price, timestamp, class.
	if !quantity.IsPositive() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}
	if !price.IsPositive() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if executedAt.After(l.now()) {
		return nil, nil, fmt.Errorf("%w: %s", ErrFutureTimestamp, executedAt.Format(time.RFC3339))
	}

	symbol, err := NormalizeSymbol(rawSymbol, assetClass)
	if err != nil {
		return nil, nil, err
	}

	if kind != models.TransactionKindBuy && kind != models.TransactionKindSell {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTransactionKind, kind)
	}

	var (
		tx    *models.Transaction
		asset *models.Asset
	)
	for attempt := 0; attempt < firstBuyAttempts; attempt++ {
		tx, asset, err = l.apply(ctx, portfolioID, symbol, assetClass, kind, quantity, price, executedAt, mark)
		if !errors.Is(err, ErrAssetExists) {
			break
		}
	}
	return tx, asset, err
}

// apply runs one attempt of the transaction inside a unit of work.
func (l *Ledger) apply(ctx context.Context, portfolioID int, symbol, assetClass, kind string, quantity, price decimal.Decimal, executedAt time.Time, mark func(UnitOfWork) error) (*models.Transaction, *models.Asset, error) {
	uow, err := l.store.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	asset, err := uow.GetAssetForUpdate(portfolioID, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up asset %s: %w", symbol, err)
	}

	switch kind {
	case models.TransactionKindSell:
		asset, err = l.applySell(uow, asset, symbol, quantity)
	case models.TransactionKindBuy:
		asset, err = l.applyBuy(ctx, uow, asset, portfolioID, symbol, assetClass, quantity)
	}
	if err != nil {
		return nil, nil, err
	}

	tx := &models.Transaction{
		PortfolioID: portfolioID,
		AssetSymbol: symbol,
		Kind:        kind,
		Quantity:    quantity,
		Price:       price,
		ExecutedAt:  executedAt,
	}
	if err := uow.AppendTransaction(tx); err != nil {
		return nil, nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	if mark != nil {
		if err := mark(uow); err != nil {
			return nil, nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tx, asset, nil
}

func (l *Ledger) applySell(uow UnitOfWork, asset *models.Asset, symbol string, quantity decimal.Decimal) (*models.Asset, error) {
	if asset == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchHolding, symbol)
	}
	if asset.Position.LessThan(quantity) {
		return nil, fmt.Errorf("%w: have %s %s, selling %s", ErrInsufficientHolding, asset.Position, symbol, quantity)
	}

	asset.Position = asset.Position.Sub(quantity)
	if err := uow.UpdateAssetPosition(asset); err != nil {
		return nil, fmt.Errorf("failed to update position for %s: %w", symbol, err)
	}
	return asset, nil
}

func (l *Ledger) applyBuy(ctx context.Context, uow UnitOfWork, asset *models.Asset, portfolioID int, symbol, assetClass string, quantity decimal.Decimal) (*models.Asset, error) {
	if asset != nil {
		asset.Position = asset.Position.Add(quantity)
		if err := uow.UpdateAssetPosition(asset); err != nil {
			return nil, fmt.Errorf("failed to update position for %s: %w", symbol, err)
		}
		return asset, nil
	}

	// First buy of this symbol: the provider's live quote seeds
	// last_price; the trade's execution price never does.
	info, err := l.provider.FetchAssetInfo(ctx, symbol, assetClass)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetInfoUnavailable, symbol, err)
	}

	lastPrice := info.LastPrice
	asset = &models.Asset{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		DisplayName: info.DisplayName,
		AssetClass:  assetClass,
		Position:    quantity,
		LastPrice:   &lastPrice,
		Sector:      info.Sector,
	}
	if err := uow.CreateAsset(asset); err != nil {
		return nil, fmt.Errorf("failed to create asset %s: %w", symbol, err)
	}
	return asset, nil
}
