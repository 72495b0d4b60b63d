package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// EnsurePortfolio creates the portfolio for a user if it does not exist
// yet and returns it. Safe to call repeatedly; user provisioning hooks
// call this on every account creation.
func (db *DB) EnsurePortfolio(userID string) (*models.Portfolio, error) {
	query := `
		INSERT INTO portfolios (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := db.conn.Exec(query, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return db.GetPortfolioByUserID(userID)
}

// GetPortfolioByUserID retrieves a user's portfolio.
func (db *DB) GetPortfolioByUserID(userID string) (*models.Portfolio, error) {
	query := `SELECT id, user_id, created_at FROM portfolios WHERE user_id = $1`

	var p models.Portfolio
	err := db.conn.QueryRow(query, userID).Scan(&p.ID, &p.UserID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("portfolio not found for user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// GetPortfolioByID retrieves a portfolio by primary key.
func (db *DB) GetPortfolioByID(id int) (*models.Portfolio, error) {
	query := `SELECT id, user_id, created_at FROM portfolios WHERE id = $1`

	var p models.Portfolio
	err := db.conn.QueryRow(query, id).Scan(&p.ID, &p.UserID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("portfolio not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// DeletePortfolio removes a portfolio and, via cascade, its assets and
// transactions. Administrative operation, not part of the ledger.
func (db *DB) DeletePortfolio(id int) error {
	result, err := db.conn.Exec(`DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio not found: %d", id)
	}
	return nil
}
