package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
)

const generateInvoiceKey = "billing.generate_invoice"

type GenerateInvoiceCommand struct {
	CommandID string
	BookingID string
}

func (c GenerateInvoiceCommand) Key() string { return generateInvoiceKey }

type GenerateInvoiceResult struct {
	InvoiceID      string `json:"invoice_id"`
	Amount         string `json:"amount"`
	AlreadyExisted bool   `json:"already_existed"`
	Skipped        bool   `json:"skipped,omitempty"`
}

// GenerateInvoiceHandler derives an invoice from a booking whose confirmation
// has been recorded; the booking itself may have moved on to completed by the
// time the record is claimed. The trigger path is at-least-once, so a second
// invocation for the same booking is a logged no-op, never an error and never
// a second invoice. The amount
// is re-derived from the unit's base price; stored booking totals are not
// trusted.
type GenerateInvoiceHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *GenerateInvoiceHandler) Handle(ctx context.Context, cmd GenerateInvoiceCommand) (*GenerateInvoiceResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	bookingID := domainbooking.ID(cmd.BookingID)
	existing, err := unit.Invoices().ByBooking(ctx, bookingID)
	if err == nil {
		if h.Logger != nil {
			h.Logger.Info("invoice already exists, skipping generation", "booking_id", cmd.BookingID, "invoice_id", existing.ID)
		}
		return &GenerateInvoiceResult{InvoiceID: string(existing.ID), Amount: existing.Amount.String(), AlreadyExisted: true}, nil
	}
	if !errors.Is(err, domainbilling.ErrInvoiceNotFound) {
		return nil, err
	}

	b, err := unit.Bookings().ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	// The confirmation record may be claimed after the stay has already run
	// its course. A completed booking is still billable; one cancelled in
	// the meantime is acknowledged without an invoice.
	switch b.Status {
	case domainbooking.StatusConfirmed, domainbooking.StatusCompleted:
	case domainbooking.StatusCancelled:
		if h.Logger != nil {
			h.Logger.Info("booking cancelled before invoicing, skipping", "booking_id", cmd.BookingID)
		}
		return &GenerateInvoiceResult{Skipped: true}, nil
	default:
		return nil, domainbooking.ErrInvalidState
	}
	target, err := unit.Units().ByID(ctx, b.UnitID)
	if err != nil {
		return nil, err
	}

	amount := target.BasePrice.Multiply(int64(b.Range.Nights()))
	inv, err := domainbilling.IssueInvoice(domainbilling.IssueParams{
		ID:       domainbilling.InvoiceID(cmd.CommandID),
		Booking:  b,
		Amount:   amount,
		IssuedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Invoices().Save(ctx, inv); err != nil {
		return nil, err
	}

	// The rendering job rides the outbox: it never blocks or fails the
	// invoice row itself.
	pending := inv.PendingEvents()
	inv.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoderOrDefault(h.Encoder), pending); err != nil {
		return nil, err
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, err
		}
	}
	return &GenerateInvoiceResult{InvoiceID: string(inv.ID), Amount: inv.Amount.String()}, nil
}

func encoderOrDefault(enc outbox.EventEncoder) outbox.EventEncoder {
	if enc != nil {
		return enc
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[GenerateInvoiceCommand, *GenerateInvoiceResult] = (*GenerateInvoiceHandler)(nil)
