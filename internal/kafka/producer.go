package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Producer handles publishing events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTransactionRecorded publishes an event after a transaction commits
func (p *Producer) PublishTransactionRecorded(ctx context.Context, tx *models.Transaction, asset *models.Asset) error {
	event := models.TransactionEvent{
		EventType:   models.EventTransactionRecorded,
		PortfolioID: tx.PortfolioID,
		Symbol:      tx.AssetSymbol,
		Transaction: tx,
		Asset:       asset,
		Timestamp:   time.Now(),
	}
	return p.publish(ctx, tx.AssetSymbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
