package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/portfolio-tracker/internal/ledger"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// The DB is the ledger's store.
var _ ledger.Store = (*DB)(nil)

// unitOfWork scopes one ledger mutation to a single database
// transaction. GetAssetForUpdate takes a row lock so concurrent writers
// against the same (portfolio, symbol) serialize.
type unitOfWork struct {
	tx *sql.Tx
}

// Begin opens a unit of work.
func (db *DB) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

// GetAssetForUpdate locks and returns the asset row for
// (portfolio, symbol), or nil when the portfolio does not hold it.
func (u *unitOfWork) GetAssetForUpdate(portfolioID int, symbol string) (*models.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE portfolio_id = $1 AND symbol = $2
		FOR UPDATE
	`
	a, err := scanAssetRow(u.tx.QueryRow(query, portfolioID, symbol))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock asset: %w", err)
	}
	return a, nil
}

// CreateAsset inserts a new asset row. A FOR UPDATE lookup on a row
// that does not exist yet takes no lock, so two first buys of the same
// symbol can both reach this insert; the loser hits the unique
// (portfolio_id, symbol) index and gets ErrAssetExists so the ledger
// can retry against the winner's committed row.
func (u *unitOfWork) CreateAsset(a *models.Asset) error {
	query := `
		INSERT INTO assets (portfolio_id, symbol, display_name, asset_class, position, last_price, sector, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`
	now := time.Now()
	err := u.tx.QueryRow(query,
		a.PortfolioID, a.Symbol, a.DisplayName, a.AssetClass,
		a.Position, a.LastPrice, a.Sector, now,
	).Scan(&a.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ledger.ErrAssetExists, a.Symbol)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// UpdateAssetPosition persists a changed position quantity.
func (u *unitOfWork) UpdateAssetPosition(a *models.Asset) error {
	query := `UPDATE assets SET position = $2, updated_at = $3 WHERE id = $1`

	now := time.Now()
	result, err := u.tx.Exec(query, a.ID, a.Position, now)
	if err != nil {
		return fmt.Errorf("failed to update asset position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("asset not found: %d", a.ID)
	}
	a.UpdatedAt = now
	return nil
}

// AppendTransaction inserts the immutable transaction record.
func (u *unitOfWork) AppendTransaction(t *models.Transaction) error {
	query := `
		INSERT INTO transactions (portfolio_id, asset_symbol, kind, quantity, price, executed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	err := u.tx.QueryRow(query,
		t.PortfolioID, t.AssetSymbol, t.Kind, t.Quantity, t.Price, t.ExecutedAt, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// Commit commits the unit of work.
func (u *unitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rollback aborts the unit of work. Calling it after Commit is a no-op.
func (u *unitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}
