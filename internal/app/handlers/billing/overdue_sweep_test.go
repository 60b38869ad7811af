package billing

import (
	"context"
	"testing"
	"time"

	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
)

func TestSweepOverdue(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")
	env.drainOutbox(t)

	handler := &SweepOverdueHandler{UoWFactory: env.factory}
	ctx := context.Background()

	// Before the due date nothing qualifies.
	res, err := handler.Handle(ctx, SweepOverdueCommand{Now: time.Now()})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Flipped != 0 {
		t.Errorf("early sweep flipped %d invoices", res.Flipped)
	}

	// Past the due date the invoice flips exactly once.
	later := time.Now().Add(domainbilling.DueIn + time.Hour)
	res, err = handler.Handle(ctx, SweepOverdueCommand{Now: later})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Flipped != 1 {
		t.Errorf("flipped: got %d, want 1", res.Flipped)
	}
	names := env.drainOutbox(t)
	if len(names) != 1 || names[0] != "invoice.overdue" {
		t.Errorf("outbox: got %v, want [invoice.overdue]", names)
	}

	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		inv, err := unit.Invoices().ByID(ctx, "inv-1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if inv.Status != domainbilling.InvoiceOverdue {
			t.Errorf("status: got %s, want overdue", inv.Status)
		}
	})

	// Idempotent on re-run.
	res, err = handler.Handle(ctx, SweepOverdueCommand{Now: later})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Flipped != 0 {
		t.Errorf("second sweep flipped %d invoices", res.Flipped)
	}
}

func TestSweepSkipsPaidInvoices(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")
	pay := &PayInvoiceHandler{UoWFactory: env.factory}
	if _, err := pay.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-1"}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	env.drainOutbox(t)

	handler := &SweepOverdueHandler{UoWFactory: env.factory}
	res, err := handler.Handle(context.Background(), SweepOverdueCommand{Now: time.Now().Add(domainbilling.DueIn + time.Hour)})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Flipped != 0 {
		t.Errorf("paid invoice flipped: %d", res.Flipped)
	}
}
