package billing

import (
	"context"
	"errors"
	"time"

	"rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/events"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/user"
)

var (
	ErrInvoiceNotFound  = errors.New("billing: invoice not found")
	ErrAlreadyPaid      = errors.New("billing: invoice is already paid")
	ErrInvoiceCancelled = errors.New("billing: invoice is cancelled")
	ErrInvalidState     = errors.New("billing: invalid invoice state transition")
	ErrForbidden        = errors.New("billing: actor is not permitted to perform this operation")
)

type InvoiceID string

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutProcessed PayoutStatus = "processed"
)

// DueIn is how long after issue an invoice stays payable before the overdue
// sweep flips it.
const DueIn = 7 * 24 * time.Hour

// Invoice bills a confirmed booking. One invoice per booking, ever.
type Invoice struct {
	ID           InvoiceID
	BookingID    booking.ID
	TenantID     user.ID
	OwnerID      user.ID
	Amount       money.Money
	IssueDate    time.Time
	DueDate      time.Time
	Status       InvoiceStatus
	PayoutStatus PayoutStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type InvoiceRepository interface {
	ByID(ctx context.Context, id InvoiceID) (*Invoice, error)
	// ByBooking returns ErrInvoiceNotFound when the booking has no invoice
	// yet; the generator relies on that for duplicate suppression.
	ByBooking(ctx context.Context, bookingID booking.ID) (*Invoice, error)
	Save(ctx context.Context, inv *Invoice) error
	ListDue(ctx context.Context, before time.Time) ([]*Invoice, error)
}

type IssueParams struct {
	ID       InvoiceID
	Booking  *booking.Booking
	Amount   money.Money
	IssuedAt time.Time
}

func IssueInvoice(params IssueParams) (*Invoice, error) {
	if params.Booking == nil {
		return nil, booking.ErrNotFound
	}
	issued := params.IssuedAt.UTC()
	inv := &Invoice{
		ID:           params.ID,
		BookingID:    params.Booking.ID,
		TenantID:     params.Booking.TenantID,
		OwnerID:      params.Booking.OwnerID,
		Amount:       params.Amount,
		IssueDate:    issued,
		DueDate:      issued.Add(DueIn),
		Status:       InvoicePending,
		PayoutStatus: PayoutPending,
		CreatedAt:    issued,
		UpdatedAt:    issued,
	}
	inv.Record(InvoiceIssued{
		InvoiceID: inv.ID,
		BookingID: inv.BookingID,
		TenantID:  inv.TenantID,
		Amount:    inv.Amount,
		DueDate:   inv.DueDate,
		At:        issued,
	})
	return inv, nil
}

// MarkPaid flips the invoice to paid. Checked in the order the payment flow
// reports failures: already-paid before cancelled.
func (inv *Invoice) MarkPaid(payer user.ID, now time.Time) error {
	if inv.Status == InvoicePaid {
		return ErrAlreadyPaid
	}
	if inv.Status == InvoiceCancelled {
		return ErrInvoiceCancelled
	}
	inv.Status = InvoicePaid
	inv.UpdatedAt = now.UTC()
	inv.Record(InvoicePaidEvent{InvoiceID: inv.ID, BookingID: inv.BookingID, PayerID: payer, Amount: inv.Amount, At: inv.UpdatedAt})
	return nil
}

// MarkOverdue is used by the periodic sweep; only a pending invoice past its
// due date qualifies.
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if inv.Status != InvoicePending {
		return ErrInvalidState
	}
	if now.UTC().Before(inv.DueDate) {
		return ErrInvalidState
	}
	inv.Status = InvoiceOverdue
	inv.UpdatedAt = now.UTC()
	inv.Record(InvoiceOverdueEvent{InvoiceID: inv.ID, BookingID: inv.BookingID, TenantID: inv.TenantID, At: inv.UpdatedAt})
	return nil
}

func (inv *Invoice) CancelInvoice(now time.Time) error {
	switch inv.Status {
	case InvoicePending, InvoiceOverdue:
	default:
		return ErrInvalidState
	}
	inv.Status = InvoiceCancelled
	inv.UpdatedAt = now.UTC()
	return nil
}

func (inv *Invoice) MarkPayoutProcessed(now time.Time) error {
	if inv.Status != InvoicePaid {
		return ErrInvalidState
	}
	inv.PayoutStatus = PayoutProcessed
	inv.UpdatedAt = now.UTC()
	return nil
}
