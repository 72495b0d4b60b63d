package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-tracker/internal/ledger"
	"github.com/trogers1052/portfolio-tracker/internal/marketdata"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// stubProvider returns a fixed quote for every symbol.
type stubProvider struct {
	price decimal.Decimal
}

func (p *stubProvider) FetchAssetInfo(ctx context.Context, symbol, assetClass string) (*marketdata.AssetInfo, error) {
	return &marketdata.AssetInfo{
		DisplayName: symbol,
		LastPrice:   p.price,
		Sector:      "Technology",
	}, nil
}

func (p *stubProvider) FetchLatestPrice(ctx context.Context, symbol, assetClass string) (*decimal.Decimal, error) {
	return &p.price, nil
}

func TestLedgerAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	ctx := context.Background()
	l := ledger.New(testDB.DB, &stubProvider{price: decimal.RequireFromString("150.00")})

	t.Run("record buy then sell end to end", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		_, asset, err := l.RecordTransaction(ctx, portfolioID, "AAPL",
			models.AssetClassUSStock, "buy", decimal.NewFromInt(10), decimal.NewFromInt(100), time.Now())
		require.NoError(t, err)
		require.NotNil(t, asset.LastPrice)
		assert.True(t, decimal.RequireFromString("150.00").Equal(*asset.LastPrice))

		_, asset, err = l.RecordTransaction(ctx, portfolioID, "AAPL",
			models.AssetClassUSStock, "sell", decimal.NewFromInt(4), decimal.NewFromInt(120), time.Now())
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(6).Equal(asset.Position))

		metrics, err := l.ComputeAssetMetrics(asset)
		require.NoError(t, err)
		// cost = 10*100 - 4*120 = 520, value = 6*150 = 900
		assert.True(t, decimal.RequireFromString("520.00").Equal(metrics.TotalCost), "total_cost = %s", metrics.TotalCost)
		assert.True(t, decimal.RequireFromString("900.00").Equal(metrics.MarketValue))
		assert.True(t, decimal.RequireFromString("380.00").Equal(metrics.ProfitLoss))
	})

	t.Run("failed sell leaves no rows", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		_, _, err := l.RecordTransaction(ctx, portfolioID, "TSLA",
			models.AssetClassUSStock, "sell", decimal.NewFromInt(1), decimal.NewFromInt(200), time.Now())
		require.ErrorIs(t, err, ledger.ErrNoSuchHolding)

		var count int
		require.NoError(t, testDB.GetRawConn().QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("concurrent oversell allows exactly one winner", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		_, _, err := l.RecordTransaction(ctx, portfolioID, "AAPL",
			models.AssetClassUSStock, "buy", decimal.NewFromInt(10), decimal.NewFromInt(100), time.Now())
		require.NoError(t, err)

		const sellers = 8
		var wg sync.WaitGroup
		errs := make([]error, sellers)
		for i := 0; i < sellers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = l.RecordTransaction(ctx, portfolioID, "AAPL",
					models.AssetClassUSStock, "sell", decimal.NewFromInt(7), decimal.NewFromInt(100), time.Now())
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, ledger.ErrInsufficientHolding)
			}
		}
		assert.Equal(t, 1, succeeded)

		asset, err := testDB.GetAsset(portfolioID, "AAPL")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3).Equal(asset.Position))

		txs, err := testDB.GetTransactionsBySymbol(portfolioID, "AAPL")
		require.NoError(t, err)
		assert.Len(t, txs, 2, "only the buy and the winning sell are recorded")
	})

	t.Run("concurrent first buys of a new symbol serialize", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		// No asset row exists yet, so FOR UPDATE has nothing to lock;
		// losers of the insert race must retry onto the winner's row
		// rather than fail on the unique index.
		const buyers = 6
		var wg sync.WaitGroup
		errs := make([]error, buyers)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = l.RecordTransaction(ctx, portfolioID, "NVDA",
					models.AssetClassUSStock, "buy", decimal.NewFromInt(2), decimal.NewFromInt(100), time.Now())
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			assert.NoError(t, err, "buyer %d", i)
		}

		asset, err := testDB.GetAsset(portfolioID, "NVDA")
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.True(t, decimal.NewFromInt(12).Equal(asset.Position), "position = %s", asset.Position)

		txs, err := testDB.GetTransactionsBySymbol(portfolioID, "NVDA")
		require.NoError(t, err)
		assert.Len(t, txs, buyers)
	})

	t.Run("redelivered broker trade applies once", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		_, _, err := l.RecordImportedTransaction(ctx, portfolioID, "order-9", "broker",
			"AAPL", models.AssetClassUSStock, "buy", decimal.NewFromInt(5), decimal.NewFromInt(100), time.Now())
		require.NoError(t, err)

		// The second apply hits the imported_trades unique index inside
		// the unit of work and rolls the whole mutation back.
		_, _, err = l.RecordImportedTransaction(ctx, portfolioID, "order-9", "broker",
			"AAPL", models.AssetClassUSStock, "buy", decimal.NewFromInt(5), decimal.NewFromInt(100), time.Now())
		require.Error(t, err)

		asset, err := testDB.GetAsset(portfolioID, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.True(t, decimal.NewFromInt(5).Equal(asset.Position))

		txs, err := testDB.GetTransactionsBySymbol(portfolioID, "AAPL")
		require.NoError(t, err)
		assert.Len(t, txs, 1)

		imported, err := testDB.ImportedTradeExists("order-9", "broker")
		require.NoError(t, err)
		assert.True(t, imported)
	})

	t.Run("different symbols do not block each other", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		symbols := []string{"AAPL", "MSFT", "GOOG", "NVDA"}
		var wg sync.WaitGroup
		errs := make([]error, len(symbols))
		for i, symbol := range symbols {
			wg.Add(1)
			go func(i int, symbol string) {
				defer wg.Done()
				_, _, errs[i] = l.RecordTransaction(ctx, portfolioID, symbol,
					models.AssetClassUSStock, "buy", decimal.NewFromInt(1), decimal.NewFromInt(100), time.Now())
			}(i, symbol)
		}
		wg.Wait()

		for i, err := range errs {
			assert.NoError(t, err, "symbol %s", symbols[i])
		}

		assets, err := testDB.GetAssetsByPortfolio(portfolioID)
		require.NoError(t, err)
		assert.Len(t, assets, len(symbols))
	})

	t.Run("price refresh updates stored quotes", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := testDB.SeedPortfolio(t, "alice")

		_, _, err := l.RecordTransaction(ctx, portfolioID, "AAPL",
			models.AssetClassUSStock, "buy", decimal.NewFromInt(1), decimal.NewFromInt(100), time.Now())
		require.NoError(t, err)

		refreshed := ledger.New(testDB.DB, &stubProvider{price: decimal.RequireFromString("180.50")})
		summary, err := refreshed.RefreshPrices(ctx, portfolioID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Updated)

		asset, err := testDB.GetAsset(portfolioID, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, asset.LastPrice)
		assert.True(t, decimal.RequireFromString("180.50").Equal(*asset.LastPrice))
	})
}
