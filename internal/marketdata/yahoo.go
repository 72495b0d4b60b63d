package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const defaultYahooBaseURL = "https://query2.finance.yahoo.com"

// YahooProvider resolves quotes via the Yahoo Finance v8 chart API.
type YahooProvider struct {
	cli     *http.Client
	baseURL string
}

// NewYahooProvider creates a provider with a bounded request timeout.
func NewYahooProvider(timeout time.Duration) *YahooProvider {
	return &YahooProvider{
		cli:     &http.Client{Timeout: timeout},
		baseURL: defaultYahooBaseURL,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// FetchAssetInfo implements Provider.
func (p *YahooProvider) FetchAssetInfo(ctx context.Context, symbol, assetClass string) (*AssetInfo, error) {
	raw, err := p.fetchChart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	r := raw.Chart.Result[0]
	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}
	if name == "" {
		name = symbol
	}

	price, err := latestPrice(raw)
	if err != nil {
		return nil, err
	}

	return &AssetInfo{
		DisplayName: name,
		LastPrice:   price,
		Sector:      defaultSector(assetClass),
	}, nil
}

// FetchLatestPrice implements Provider. Lookup failures come back as a
// nil price rather than an error.
func (p *YahooProvider) FetchLatestPrice(ctx context.Context, symbol, assetClass string) (*decimal.Decimal, error) {
	raw, err := p.fetchChart(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	price, err := latestPrice(raw)
	if err != nil {
		return nil, nil
	}
	return &price, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string) (*chartResponse, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", p.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", "portfolio-tracker/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode quote for %s: %w", symbol, err)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return &raw, nil
}

// latestPrice takes the regular market price from the chart meta,
// falling back to the last non-zero close when the meta is missing.
func latestPrice(raw *chartResponse) (decimal.Decimal, error) {
	r := raw.Chart.Result[0]

	price := r.Meta.RegularMarketPrice
	if price <= 0 && len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		for i := len(r.Timestamp) - 1; i >= 0; i-- {
			if c := r.Indicators.Quote[0].Close[i]; c > 0 {
				price = c
				break
			}
		}
	}
	if price <= 0 {
		return decimal.Zero, ErrSymbolNotFound
	}
	return decimal.NewFromFloat(price).Round(2), nil
}

func defaultSector(assetClass string) string {
	switch assetClass {
	case models.AssetClassCrypto:
		return "Cryptocurrency"
	case models.AssetClassAUStock, models.AssetClassUSStock:
		return "Equity"
	default:
		return "Unknown"
	}
}
