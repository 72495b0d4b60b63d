package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// ErrAssetExists is returned by UnitOfWork.CreateAsset when another
// writer inserted the same (portfolio, symbol) row first. The ledger
// reacts by retrying the unit of work, which then finds the committed
// row and takes the buy-existing path.
var ErrAssetExists = errors.New("asset already exists")

// Store is the persistence boundary of the ledger. The postgres
// implementation lives in internal/database; tests use an in-memory one.
type Store interface {
	// Begin opens a unit of work covering one ledger mutation.
	Begin(ctx context.Context) (UnitOfWork, error)

	// GetAsset returns the asset for (portfolioID, symbol), or nil when
	// the portfolio does not hold that symbol.
	GetAsset(portfolioID int, symbol string) (*models.Asset, error)
	GetAssetsByPortfolio(portfolioID int) ([]*models.Asset, error)
	GetTransactionsBySymbol(portfolioID int, symbol string) ([]*models.Transaction, error)
	GetTransactionsByPortfolio(portfolioID int) ([]*models.Transaction, error)

	// UpdateAssetPrice overwrites last_price for a held symbol. Used by
	// the bulk price refresh, never by the transaction write path.
	UpdateAssetPrice(portfolioID int, symbol string, price decimal.Decimal) error
}

// UnitOfWork scopes the asset mutation and the transaction append into
// one atomic commit. GetAssetForUpdate must lock the asset row (or
// equivalent) so concurrent writers on the same symbol serialize.
type UnitOfWork interface {
	GetAssetForUpdate(portfolioID int, symbol string) (*models.Asset, error)
	CreateAsset(a *models.Asset) error
	UpdateAssetPosition(a *models.Asset) error
	AppendTransaction(t *models.Transaction) error

	// MarkTradeImported claims an externally executed trade inside the
	// same commit as the ledger mutation. A duplicate (orderID, source)
	// claim must fail so the whole unit of work rolls back.
	MarkTradeImported(orderID, source string) error

	Commit() error
	Rollback() error
}
