package ledger

import (
	"context"
	"fmt"
	"log"
)

// RefreshSummary reports the outcome of a bulk price refresh.
type RefreshSummary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// RefreshPrices re-quotes every asset in the portfolio and stores the
// latest prices. Symbols the provider cannot resolve are skipped rather
// than failing the whole refresh.
func (l *Ledger) RefreshPrices(ctx context.Context, portfolioID int) (*RefreshSummary, error) {
	assets, err := l.store.GetAssetsByPortfolio(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	summary := &RefreshSummary{}
	for _, asset := range assets {
		price, err := l.provider.FetchLatestPrice(ctx, asset.Symbol, asset.AssetClass)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch price for %s: %w", asset.Symbol, err)
		}
		if price == nil {
			log.Printf("No price for %s, skipping", asset.Symbol)
			summary.Skipped++
			continue
		}

		if err := l.store.UpdateAssetPrice(portfolioID, asset.Symbol, *price); err != nil {
			return nil, fmt.Errorf("failed to store price for %s: %w", asset.Symbol, err)
		}
		summary.Updated++
	}
	return summary, nil
}
