package models

import "time"

// Portfolio is the single per-user container of assets and transactions.
// One is provisioned per user when the account is created.
type Portfolio struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
