package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kpapadakis/ali-price-checker/internal/models"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishQuote(t *testing.T) {
	mockRedis := new(MockRedisClient)
	p := NewPublisher(mockRedis, "stream:test", testLogger())

	var captured *redis.XAddArgs
	mockRedis.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		captured = args
		return true
	})).Return(nil)

	quote := &models.PriceQuote{
		URL:           "https://www.aliexpress.com/item/33052582900.html",
		ItemPrice:     4.12,
		ShippingPrice: 3.66,
		Currency:      "EUR",
		Tracking:      true,
	}

	err := p.PublishQuote(context.Background(), "job-1", quote)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "stream:test", captured.Stream)

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, string(EventTypePriceQuoted), values["event_type"])
	assert.Equal(t, quote.URL, values["url"])
	assert.NotEmpty(t, values["event_id"])
	assert.Contains(t, values["payload"].(string), `"item_price":4.12`)

	mockRedis.AssertExpectations(t)
}

func TestPublishFailedQuote(t *testing.T) {
	mockRedis := new(MockRedisClient)
	p := NewPublisher(mockRedis, "stream:test", testLogger())

	var captured *redis.XAddArgs
	mockRedis.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		captured = args
		return true
	})).Return(nil)

	quote := &models.PriceQuote{
		URL:   "https://www.aliexpress.com/item/999.html",
		Error: "item price not found",
	}

	require.NoError(t, p.PublishQuote(context.Background(), "job-1", quote))

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, string(EventTypeQuoteFailed), values["event_type"])
}

func TestPublishQuoteRedisError(t *testing.T) {
	mockRedis := new(MockRedisClient)
	p := NewPublisher(mockRedis, "", testLogger())

	mockRedis.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := p.PublishQuote(context.Background(), "", &models.PriceQuote{URL: "u"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stream:price_quotes")
}
