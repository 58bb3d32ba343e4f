package service

import (
	"time"

	"invoicegen/internal/model"

	"github.com/google/uuid"
)

const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceSent      = "invoice.sent"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceCancelled = "invoice.cancelled"
	EventInvoiceRefunded  = "invoice.refunded"
	EventPaymentRecorded  = "payment.recorded"
)

// Event is emitted after the transaction that caused it has committed.
type Event struct {
	Type          string    `json:"type"`
	UserID        uuid.UUID `json:"user_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Status        string    `json:"status"`
	AmountDue     string    `json:"amount_due"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newInvoiceEvent(kind string, userID uuid.UUID, inv *model.Invoice, at time.Time) Event {
	return Event{
		Type:          kind,
		UserID:        userID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		AmountDue:     inv.AmountDue.StringFixed(2),
		OccurredAt:    at.UTC(),
	}
}

// EventPublisher is the hook point for notifications such as emails or live updates.
// Delivery is best effort.
type EventPublisher interface {
	Publish(e Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// NopPublisher discards events.
func NopPublisher() EventPublisher { return nopPublisher{} }
