package database

import (
	"database/sql"
	"fmt"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const transactionColumns = `id, portfolio_id, asset_symbol, kind, quantity, price, executed_at, created_at`

// GetTransactionsBySymbol retrieves the full history recorded against a
// symbol within a portfolio, oldest first.
func (db *DB) GetTransactionsBySymbol(portfolioID int, symbol string) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = $1 AND asset_symbol = $2
		ORDER BY executed_at ASC
	`
	return scanTransactions(db.conn.Query(query, portfolioID, symbol))
}

// GetTransactionsByPortfolio retrieves all transactions in a portfolio,
// most recent first.
func (db *DB) GetTransactionsByPortfolio(portfolioID int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY executed_at DESC
	`
	return scanTransactions(db.conn.Query(query, portfolioID))
}

// GetTransactionByID retrieves a single transaction record.
func (db *DB) GetTransactionByID(id int) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`
	var t models.Transaction
	err := db.conn.QueryRow(query, id).Scan(
		&t.ID, &t.PortfolioID, &t.AssetSymbol, &t.Kind,
		&t.Quantity, &t.Price, &t.ExecutedAt, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

func scanTransactions(rows *sql.Rows, err error) ([]*models.Transaction, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID, &t.PortfolioID, &t.AssetSymbol, &t.Kind,
			&t.Quantity, &t.Price, &t.ExecutedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
