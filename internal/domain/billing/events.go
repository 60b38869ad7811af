package billing

import (
	"time"

	"rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/user"
)

type InvoiceIssued struct {
	InvoiceID InvoiceID
	BookingID booking.ID
	TenantID  user.ID
	Amount    money.Money
	DueDate   time.Time
	At        time.Time
}

func (e InvoiceIssued) EventName() string     { return "invoice.issued" }
func (e InvoiceIssued) AggregateID() string   { return string(e.InvoiceID) }
func (e InvoiceIssued) OccurredAt() time.Time { return e.At }

type InvoicePaidEvent struct {
	InvoiceID InvoiceID
	BookingID booking.ID
	PayerID   user.ID
	Amount    money.Money
	At        time.Time
}

func (e InvoicePaidEvent) EventName() string     { return "invoice.paid" }
func (e InvoicePaidEvent) AggregateID() string   { return string(e.InvoiceID) }
func (e InvoicePaidEvent) OccurredAt() time.Time { return e.At }

type InvoiceOverdueEvent struct {
	InvoiceID InvoiceID
	BookingID booking.ID
	TenantID  user.ID
	At        time.Time
}

func (e InvoiceOverdueEvent) EventName() string     { return "invoice.overdue" }
func (e InvoiceOverdueEvent) AggregateID() string   { return string(e.InvoiceID) }
func (e InvoiceOverdueEvent) OccurredAt() time.Time { return e.At }
