package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const assetColumns = `id, portfolio_id, symbol, display_name, asset_class, position, last_price, sector, created_at, updated_at`

// GetAsset retrieves the asset held for (portfolio, symbol), or nil
// when the portfolio does not hold that symbol.
func (db *DB) GetAsset(portfolioID int, symbol string) (*models.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE portfolio_id = $1 AND symbol = $2
	`
	return scanAsset(db.conn.QueryRow(query, portfolioID, symbol))
}

// GetAssetsByPortfolio retrieves all assets in a portfolio ordered by symbol.
func (db *DB) GetAssetsByPortfolio(portfolioID int) ([]*models.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE portfolio_id = $1
		ORDER BY symbol ASC
	`
	return scanAssets(db.conn.Query(query, portfolioID))
}

// UpdateAssetPrice overwrites last_price for a held symbol. Used by the
// bulk price refresh path.
func (db *DB) UpdateAssetPrice(portfolioID int, symbol string, price decimal.Decimal) error {
	query := `
		UPDATE assets SET last_price = $3, updated_at = $4
		WHERE portfolio_id = $1 AND symbol = $2
	`
	result, err := db.conn.Exec(query, portfolioID, symbol, price, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update asset price: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("asset not found: %s", symbol)
	}
	return nil
}

// DeleteAsset removes an asset row. Administrative operation; the
// ledger itself never deletes assets.
func (db *DB) DeleteAsset(portfolioID int, symbol string) error {
	result, err := db.conn.Exec(`DELETE FROM assets WHERE portfolio_id = $1 AND symbol = $2`, portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("asset not found: %s", symbol)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssetRow(row rowScanner) (*models.Asset, error) {
	var a models.Asset
	var lastPrice sql.NullString
	var sector sql.NullString

	err := row.Scan(
		&a.ID, &a.PortfolioID, &a.Symbol, &a.DisplayName, &a.AssetClass,
		&a.Position, &lastPrice, &sector, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastPrice.Valid {
		price, err := decimal.NewFromString(lastPrice.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_price %q: %w", lastPrice.String, err)
		}
		a.LastPrice = &price
	}
	if sector.Valid {
		a.Sector = sector.String
	}
	return &a, nil
}

func scanAsset(row *sql.Row) (*models.Asset, error) {
	a, err := scanAssetRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

func scanAssets(rows *sql.Rows, err error) ([]*models.Asset, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		a, err := scanAssetRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
