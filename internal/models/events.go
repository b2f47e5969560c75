package models

import "time"

// Event types
const (
	EventTypePriceCheckRequested = "PRICE_CHECK_REQUESTED"
	EventTypePriceChecked        = "PRICE_CHECKED"
	EventTypePriceCheckFailed    = "PRICE_CHECK_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceCheckRequestedEvent asks the worker to run a price check
type PriceCheckRequestedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Query     string `json:"query"`
	Platform  string `json:"platform"`
}

// PriceCheckedEvent published after a successful price check
type PriceCheckedEvent struct {
	BaseEvent
	RequestID string     `json:"request_id,omitempty"`
	Query     string     `json:"query"`
	Platform  string     `json:"platform"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	Sell      Statistics `json:"sell"`
	Buy       Statistics `json:"buy"`
}

// PriceCheckFailedEvent published when a requested price check fails
type PriceCheckFailedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Query     string `json:"query"`
	Platform  string `json:"platform"`
	Reason    string `json:"reason"`
	Kind      string `json:"kind"`
}
