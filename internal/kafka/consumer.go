package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Repository defines the database operations the consumer needs to
// resolve portfolios and skip already-imported broker trades.
type Repository interface {
	GetPortfolioByUserID(userID string) (*models.Portfolio, error)
	ImportedTradeExists(orderID, source string) (bool, error)
}

// Recorder applies an imported trade to the position ledger. The
// (orderID, source) import mark commits atomically with the ledger
// mutation, so redelivered events cannot apply twice.
type Recorder interface {
	RecordImportedTransaction(ctx context.Context, portfolioID int, orderID, source, rawSymbol, assetClass, kind string, quantity, price decimal.Decimal, executedAt time.Time) (*models.Transaction, *models.Asset, error)
}

// Consumer ingests trade executions from an external broker feed and
// records them through the ledger.
type Consumer struct {
	reader   *kafka.Reader
	repo     Repository
	recorder Recorder
}

// NewConsumer creates a new Kafka consumer for broker trade events
func NewConsumer(brokers []string, topic, groupID string, repo Repository, recorder Recorder) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		repo:     repo,
		recorder: recorder,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Printf("Received message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != models.EventTradeExecuted {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	// Fast-path skip for trades already applied on a previous delivery.
	// The authoritative duplicate guard is the import mark committed
	// inside the recorder's unit of work.
	exists, err := c.repo.ImportedTradeExists(event.Data.OrderID, event.Source)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate trade: %w", err)
	}
	if exists {
		log.Printf("Trade %s from %s already imported, skipping", event.Data.OrderID, event.Source)
		return nil
	}

	portfolio, err := c.repo.GetPortfolioByUserID(event.Data.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve portfolio for user %s: %w", event.Data.UserID, err)
	}

	kind, quantity, price, executedAt, err := parseTrade(event.Data)
	if err != nil {
		return err
	}

	tx, _, err := c.recorder.RecordImportedTransaction(ctx, portfolio.ID,
		event.Data.OrderID, event.Source,
		event.Data.Symbol, event.Data.AssetClass, kind, quantity, price, executedAt)
	if err != nil {
		return fmt.Errorf("failed to record imported trade %s: %w", event.Data.OrderID, err)
	}

	log.Printf("Recorded imported trade: %s %s %s @ %s (order_id: %s)",
		kind, tx.Quantity, tx.AssetSymbol, tx.Price, event.Data.OrderID)

	return nil
}

// parseTrade maps TradeEvent payload fields onto ledger inputs
func parseTrade(data models.TradeEventData) (kind string, quantity, price decimal.Decimal, executedAt time.Time, err error) {
	quantity, err = decimal.NewFromString(data.Quantity)
	if err != nil {
		err = fmt.Errorf("invalid quantity %s: %w", data.Quantity, err)
		return
	}

	price, err = decimal.NewFromString(data.Price)
	if err != nil {
		err = fmt.Errorf("invalid price %s: %w", data.Price, err)
		return
	}

	kind = strings.ToLower(data.Side)
	if kind != models.TransactionKindBuy && kind != models.TransactionKindSell {
		err = fmt.Errorf("invalid trade side: %s", data.Side)
		return
	}

	// A missing timestamp defaults to now; a present but malformed one
	// rejects the event so the trade's history is never rewritten with
	// a guessed time.
	executedAt = time.Now()
	if data.ExecutedAt != nil && *data.ExecutedAt != "" {
		parsed, perr := time.Parse(time.RFC3339, *data.ExecutedAt)
		if perr != nil {
			// Try parsing without timezone
			parsed, perr = time.Parse("2006-01-02T15:04:05", *data.ExecutedAt)
		}
		if perr != nil {
			err = fmt.Errorf("invalid executed_at %q: %w", *data.ExecutedAt, perr)
			return
		}
		executedAt = parsed
	}
	return
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
