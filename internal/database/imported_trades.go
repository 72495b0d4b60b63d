package database

import (
	"fmt"
	"time"
)

// ImportedTradeExists checks whether a broker trade with the given
// order_id and source has already been recorded.
func (db *DB) ImportedTradeExists(orderID, source string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM imported_trades WHERE order_id = $1 AND source = $2)`

	var exists bool
	err := db.conn.QueryRow(query, orderID, source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check imported trade existence: %w", err)
	}
	return exists, nil
}

// MarkTradeImported claims a broker trade inside the unit of work that
// applies it, so the claim and the ledger mutation commit or roll back
// together. A duplicate (order_id, source) hits the unique index and
// fails the whole unit of work instead of applying the trade twice.
func (u *unitOfWork) MarkTradeImported(orderID, source string) error {
	query := `
		INSERT INTO imported_trades (order_id, source, imported_at)
		VALUES ($1, $2, $3)
	`
	if _, err := u.tx.Exec(query, orderID, source, time.Now()); err != nil {
		return fmt.Errorf("failed to mark trade imported: %w", err)
	}
	return nil
}
