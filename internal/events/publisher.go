package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kpapadakis/ali-price-checker/internal/models"
)

// EventType identifies what happened.
type EventType string

const (
	// EventTypePriceQuoted is published for every successfully quoted item.
	EventTypePriceQuoted EventType = "PRICE_QUOTED"
	// EventTypeQuoteFailed is published when an item exhausted its retries.
	EventTypeQuoteFailed EventType = "QUOTE_FAILED"
)

// PriceQuotedPayload is the stream message body.
type PriceQuotedPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	JobID         string    `json:"job_id,omitempty"`
	URL           string    `json:"url"`
	ItemPrice     float64   `json:"item_price"`
	ShippingPrice float64   `json:"shipping_price"`
	Currency      string    `json:"currency,omitempty"`
	Tracking      bool      `json:"tracking"`
	Error         string    `json:"error,omitempty"`
}

// RedisClient is the slice of go-redis the publisher uses; a mock stands in
// during tests.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher pushes quote events onto a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = "stream:price_quotes"
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishQuote publishes a PRICE_QUOTED (or QUOTE_FAILED) event for the quote.
func (p *Publisher) PublishQuote(ctx context.Context, jobID string, quote *models.PriceQuote) error {
	payload := &PriceQuotedPayload{
		EventID:       uuid.New().String(),
		EventType:     string(EventTypePriceQuoted),
		Timestamp:     time.Now(),
		JobID:         jobID,
		URL:           quote.URL,
		ItemPrice:     quote.ItemPrice,
		ShippingPrice: quote.ShippingPrice,
		Currency:      quote.Currency,
		Tracking:      quote.Tracking,
		Error:         quote.Error,
	}
	if quote.Failed() {
		payload.EventType = string(EventTypeQuoteFailed)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   payload.EventID,
			"event_type": payload.EventType,
			"url":        payload.URL,
			"payload":    string(data),
		},
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Info("event published",
		"stream", p.stream,
		"event_type", payload.EventType,
		"url", payload.URL,
		"stream_id", result.Val(),
	)

	return nil
}
