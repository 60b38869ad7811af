package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/middleware"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainuser "rentdesk/internal/domain/user"
)

const payInvoiceKey = "billing.pay_invoice"

type PayInvoiceCommand struct {
	InvoiceID       string
	ActorID         string
	IdempotencyKeyV string
}

func (c PayInvoiceCommand) Key() string { return payInvoiceKey }

func (c PayInvoiceCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c PayInvoiceCommand) ResultPrototype() any { return &PayInvoiceResult{} }

type PayInvoiceResult struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
	EntryID   string `json:"ledger_entry_id"`
}

// PayInvoiceHandler flips the invoice to paid and appends the matching
// payment ledger entry in one unit of work. Either both writes land or
// neither does; an invoice marked paid without its ledger row is a
// correctness violation, not a degraded mode.
type PayInvoiceHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
}

func (h *PayInvoiceHandler) Handle(ctx context.Context, cmd PayInvoiceCommand) (*PayInvoiceResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inv, err := unit.Invoices().ByID(ctx, domainbilling.InvoiceID(cmd.InvoiceID))
	if err != nil {
		return nil, err
	}
	payer := domainuser.ID(cmd.ActorID)
	// Precondition order matters: rights first, then already-paid, then
	// cancelled. Each failure is distinct to the caller.
	if inv.TenantID != payer {
		return nil, domainbilling.ErrForbidden
	}
	now := time.Now().UTC()
	if err := inv.MarkPaid(payer, now); err != nil {
		return nil, err
	}

	entry, err := domainbilling.NewLedgerEntry(domainbilling.EntryParams{
		ID:          domainbilling.EntryID(uuid.NewString()),
		InvoiceID:   inv.ID,
		UserID:      payer,
		Amount:      inv.Amount,
		Type:        domainbilling.EntryPayment,
		Description: "tenant payment for invoice " + string(inv.ID),
		IsVerified:  true,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}

	// The landlord side of the movement. Verified payout entries are what
	// the landlord ledger query sums into the running balance.
	payout, err := domainbilling.NewLedgerEntry(domainbilling.EntryParams{
		ID:          domainbilling.EntryID(uuid.NewString()),
		InvoiceID:   inv.ID,
		UserID:      inv.OwnerID,
		Amount:      inv.Amount,
		Type:        domainbilling.EntryPayout,
		Description: "payout for invoice " + string(inv.ID),
		IsVerified:  true,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Ledger().Append(ctx, payout); err != nil {
		return nil, err
	}
	if err := inv.MarkPayoutProcessed(now); err != nil {
		return nil, err
	}
	if err := unit.Invoices().Save(ctx, inv); err != nil {
		return nil, err
	}

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
	return &PayInvoiceResult{InvoiceID: string(inv.ID), Status: string(inv.Status), EntryID: string(entry.ID)}, nil
}

var _ commands.Handler[PayInvoiceCommand, *PayInvoiceResult] = (*PayInvoiceHandler)(nil)
var _ middleware.IdempotentCommand = (*PayInvoiceCommand)(nil)
