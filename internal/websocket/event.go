package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated   EventType = "created"
	EventTypeDeleted   EventType = "deleted"
	EventTypePaid      EventType = "paid"
	EventTypeApplied   EventType = "applied"
	EventTypeProcessed EventType = "processed"
	EventTypeRefreshed EventType = "refreshed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeInvoice      EntityType = "invoice"
	EntityTypePayment      EntityType = "payment"
	EntityTypeObligation   EntityType = "obligation"
	EntityTypeNotification EntityType = "notification"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "invoice.paid"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "invoice"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// InvoiceCreated creates an invoice.created event
func InvoiceCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeInvoice, payload)
}

// InvoiceDeleted creates an invoice.deleted event
func InvoiceDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeInvoice, payload)
}

// InvoicePaid creates an invoice.paid event
func InvoicePaid(payload interface{}) Event {
	return NewEvent(EventTypePaid, EntityTypeInvoice, payload)
}

// PaymentApplied creates a payment.applied event
func PaymentApplied(payload interface{}) Event {
	return NewEvent(EventTypeApplied, EntityTypePayment, payload)
}

// ObligationsProcessed creates an obligation.processed event
func ObligationsProcessed(payload interface{}) Event {
	return NewEvent(EventTypeProcessed, EntityTypeObligation, payload)
}

// NotificationsRefreshed creates a notification.refreshed event
func NotificationsRefreshed(payload interface{}) Event {
	return NewEvent(EventTypeRefreshed, EntityTypeNotification, payload)
}
