package service

import (
	"context"
	"time"
)

// Detection event types published to the message queue.
const (
	EventStoreDetected  = "store_detected"
	EventStoreConfirmed = "store_confirmed"
	EventStoreSelected  = "store_selected"
)

// DetectionEvent is the analytics event emitted when a store is detected,
// confirmed, or manually selected.
type DetectionEvent struct {
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	EventType  string    `json:"event_type"`
	StoreID    string    `json:"store_id"`
	StoreName  string    `json:"store_name,omitempty"`
	Chain      string    `json:"chain,omitempty"`
	Method     string    `json:"method"`
	Confidence int       `json:"confidence"`
	Latitude   float64   `json:"latitude,omitempty"`
	Longitude  float64   `json:"longitude,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishDetectionEvent publishes a detection event for async processing.
	// Best-effort; callers log failures and move on.
	PublishDetectionEvent(ctx context.Context, event *DetectionEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
