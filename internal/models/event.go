package models

import "time"

// Kafka event type constants
const (
	EventTransactionRecorded = "TRANSACTION_RECORDED"
	EventTradeExecuted       = "TRADE_EXECUTED"
)

// TransactionEvent is published after a transaction commits.
type TransactionEvent struct {
	EventType   string       `json:"event_type"`
	PortfolioID int          `json:"portfolio_id"`
	Symbol      string       `json:"symbol"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Asset       *Asset       `json:"asset,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// TradeEvent is an inbound trade notification from an external broker
// feed. Quantities and prices arrive as strings and are parsed before
// the trade is handed to the ledger.
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData is the payload of a TradeEvent.
type TradeEventData struct {
	OrderID    string  `json:"order_id"`
	UserID     string  `json:"user_id"`
	Symbol     string  `json:"symbol"`
	AssetClass string  `json:"asset_class"`
	Side       string  `json:"side"`
	Quantity   string  `json:"quantity"`
	Price      string  `json:"price"`
	ExecutedAt *string `json:"executed_at,omitempty"`
}
