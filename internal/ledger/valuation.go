package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// ComputeAssetMetrics derives valuation figures for one asset from its
// stored transaction history and latest quote. Read-only; nothing is
// cached.
func (l *Ledger) ComputeAssetMetrics(asset *models.Asset) (*models.AssetMetrics, error) {
	txs, err := l.store.GetTransactionsBySymbol(asset.PortfolioID, asset.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", asset.Symbol, err)
	}
	m := AssetMetrics(asset, txs)
	return &m, nil
}

// ComputePortfolioMetrics sums market value and cost basis across all
// assets in the portfolio.
func (l *Ledger) ComputePortfolioMetrics(portfolioID int) (*models.PortfolioMetrics, error) {
	assets, err := l.store.GetAssetsByPortfolio(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	metrics := &models.PortfolioMetrics{
		AssetsValue: decimal.Zero,
		AssetsCost:  decimal.Zero,
	}
	for _, asset := range assets {
		am, err := l.ComputeAssetMetrics(asset)
		if err != nil {
			return nil, err
		}
		metrics.AssetsValue = metrics.AssetsValue.Add(am.MarketValue)
		metrics.AssetsCost = metrics.AssetsCost.Add(am.TotalCost)
	}
	return metrics, nil
}

// AssetMetrics computes valuation figures from an asset and the
// transactions recorded against its symbol.
//
// Cost basis is a net buy-minus-sell rollup over the whole history, not
// lot matching: a sell reduces cost by its own notional value, so large
// sells can drive the basis negative. That mirrors the accounting model
// this tracker has always used.
func AssetMetrics(asset *models.Asset, txs []*models.Transaction) models.AssetMetrics {
	totalCost := decimal.Zero
	for _, tx := range txs {
		switch tx.Kind {
		case models.TransactionKindBuy:
			totalCost = totalCost.Add(tx.Notional())
		case models.TransactionKindSell:
			totalCost = totalCost.Sub(tx.Notional())
		}
	}

	marketValue := decimal.Zero
	if asset.LastPrice != nil {
		marketValue = asset.Position.Mul(*asset.LastPrice)
	}

	averageCost := decimal.Zero
	if asset.Position.IsPositive() {
		averageCost = totalCost.Div(asset.Position)
	}

	return models.AssetMetrics{
		Symbol:      asset.Symbol,
		MarketValue: marketValue,
		TotalCost:   totalCost,
		AverageCost: averageCost,
		ProfitLoss:  marketValue.Sub(totalCost),
	}
}
