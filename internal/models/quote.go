package models

import (
	"time"
)

// CheckItem is a single row of work: an item page URL plus whether the
// shipping quote should prefer a tracked shipping option.
type CheckItem struct {
	URL      string `json:"url"`
	Tracking bool   `json:"tracking"`
	Row      int    `json:"row,omitempty"`
}

// PriceQuote is the result of checking one item.
type PriceQuote struct {
	URL           string    `json:"url"`
	ItemPrice     float64   `json:"item_price"`
	ShippingPrice float64   `json:"shipping_price"`
	Currency      string    `json:"currency"`
	Tracking      bool      `json:"tracking"`
	CheckedAt     time.Time `json:"checked_at"`
	Error         string    `json:"error,omitempty"`
}

// Total returns the item price plus shipping.
func (q *PriceQuote) Total() float64 {
	return q.ItemPrice + q.ShippingPrice
}

// Failed reports whether the quote carries an error instead of prices.
func (q *PriceQuote) Failed() bool {
	return q.Error != ""
}

// Job is a persisted batch of items checked under one country/currency
// configuration.
type Job struct {
	ID        string      `json:"id"`
	Country   string      `json:"country"`
	Currency  string      `json:"currency"`
	Status    string      `json:"status"`
	Items     []CheckItem `json:"items"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Error     string      `json:"error,omitempty"`
}

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

func NewQuote(item CheckItem, currency string) *PriceQuote {
	return &PriceQuote{
		URL:       item.URL,
		Tracking:  item.Tracking,
		Currency:  currency,
		CheckedAt: time.Now(),
	}
}
