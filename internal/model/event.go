package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderReceiptUploaded = "order.receipt_uploaded"
	EventChatMessagePosted    = "chat.message_posted"
	EventContactSubmitted     = "contact.submitted"
)

// Event is the envelope published to the store events queue.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OrderID    *uuid.UUID      `json:"orderId,omitempty"`
	Status     OrderStatus     `json:"status,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewEvent(eventType string, orderID *uuid.UUID) Event {
	return Event{ID: uuid.New(), Type: eventType, OrderID: orderID, OccurredAt: time.Now().UTC()}
}
