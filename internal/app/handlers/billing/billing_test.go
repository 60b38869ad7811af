package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
	"rentdesk/internal/infra/storage/memory"
)

type testEnv struct {
	factory memory.Factory
	box     *memory.Outbox
}

func newTestEnv() testEnv {
	box := memory.NewOutbox()
	return testEnv{
		factory: memory.Factory{Store: memory.NewStore(), Outbox: box},
		box:     box,
	}
}

func (e testEnv) inUnit(t *testing.T, fn func(ctx context.Context, unit uow.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	unit, err := e.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	fn(ctx, unit)
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func (e testEnv) drainOutbox(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	var names []string
	for {
		doc, err := e.box.Claim(ctx, "test-worker")
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if doc == nil {
			return names
		}
		names = append(names, doc.Name)
		if err := e.box.MarkSent(ctx, doc.ID); err != nil {
			t.Fatalf("MarkSent: %v", err)
		}
	}
}

func feb(d int) time.Time {
	return time.Date(2026, time.February, d, 0, 0, 0, 0, time.UTC)
}

// seedConfirmedBooking stores a unit plus a confirmed booking on it.
func (e testEnv) seedConfirmedBooking(t *testing.T, bookingID string) {
	t.Helper()
	u, err := domainunit.NewUnit(domainunit.CreateParams{
		ID:         "unit-1",
		PropertyID: "prop-1",
		OwnerID:    "landlord-1",
		Number:     "2B",
		Title:      "Garden studio",
		BasePrice:  money.Must(4000, "USD"),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewUnit: %v", err)
	}
	u.ClearEvents()

	dr, err := daterange.New(feb(10), feb(15))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.ID(bookingID),
		Unit:       u,
		TenantID:   "tenant-1",
		Range:      dr,
		TotalPrice: money.Must(20000, "USD"),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Confirm(time.Now()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	b.ClearEvents()

	e.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		if err := unit.Units().Save(ctx, u); err != nil {
			t.Fatalf("save unit: %v", err)
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("save booking: %v", err)
		}
	})
}

func (e testEnv) issueInvoice(t *testing.T, invoiceID, bookingID string) *GenerateInvoiceResult {
	t.Helper()
	handler := &GenerateInvoiceHandler{UoWFactory: e.factory}
	res, err := handler.Handle(context.Background(), GenerateInvoiceCommand{CommandID: invoiceID, BookingID: bookingID})
	if err != nil {
		t.Fatalf("generate invoice: %v", err)
	}
	return res
}

func TestGenerateInvoice(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")

	res := env.issueInvoice(t, "inv-1", "bk-1")
	if res.AlreadyExisted {
		t.Error("first generation must not report a duplicate")
	}
	if res.Amount != "200.00 USD" {
		t.Errorf("amount: got %s, want 200.00 USD", res.Amount)
	}
	names := env.drainOutbox(t)
	if len(names) != 1 || names[0] != "invoice.issued" {
		t.Errorf("outbox: got %v, want [invoice.issued]", names)
	}
}

func TestGenerateInvoiceSuppressesDuplicates(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")

	first := env.issueInvoice(t, "inv-1", "bk-1")
	env.drainOutbox(t)

	// At-least-once delivery retries the same booking; the second run is a
	// no-op that reports the existing invoice.
	second := env.issueInvoice(t, "inv-2", "bk-1")
	if !second.AlreadyExisted {
		t.Error("second generation must report the existing invoice")
	}
	if second.InvoiceID != first.InvoiceID {
		t.Errorf("invoice id: got %s, want %s", second.InvoiceID, first.InvoiceID)
	}
	if names := env.drainOutbox(t); len(names) != 0 {
		t.Errorf("duplicate run staged events: %v", names)
	}
}

func TestGenerateInvoiceAfterBookingCompletes(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	// The confirmation record can sit in the queue long enough for the stay
	// to finish. The completed booking still gets its invoice.
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		b, err := unit.Bookings().ByID(ctx, "bk-1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if err := b.Complete(time.Now()); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		b.ClearEvents()
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})

	res := env.issueInvoice(t, "inv-1", "bk-1")
	if res.Skipped || res.AlreadyExisted {
		t.Errorf("completed booking must be invoiced, got %+v", res)
	}
	if res.Amount != "200.00 USD" {
		t.Errorf("amount: got %s, want 200.00 USD", res.Amount)
	}
	if names := env.drainOutbox(t); len(names) != 1 || names[0] != "invoice.issued" {
		t.Errorf("outbox: got %v, want [invoice.issued]", names)
	}
}

func TestGenerateInvoiceSkipsCancelledBooking(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		b, err := unit.Bookings().ByID(ctx, "bk-1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if err := b.Cancel(time.Now()); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		b.ClearEvents()
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})

	// No error: the trigger record must be acknowledged, not retried forever.
	res := env.issueInvoice(t, "inv-1", "bk-1")
	if !res.Skipped {
		t.Errorf("cancelled booking: got %+v, want a skip", res)
	}
	if res.InvoiceID != "" {
		t.Errorf("cancelled booking produced invoice %s", res.InvoiceID)
	}
	if names := env.drainOutbox(t); len(names) != 0 {
		t.Errorf("skip staged events: %v", names)
	}
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		if _, err := unit.Invoices().ByBooking(ctx, "bk-1"); !errors.Is(err, domainbilling.ErrInvoiceNotFound) {
			t.Errorf("ByBooking after skip: %v, want ErrInvoiceNotFound", err)
		}
	})
}

func TestGenerateInvoiceRejectsPendingBooking(t *testing.T) {
	env := newTestEnv()
	u, err := domainunit.NewUnit(domainunit.CreateParams{
		ID:         "unit-1",
		PropertyID: "prop-1",
		OwnerID:    "landlord-1",
		Number:     "2B",
		Title:      "Garden studio",
		BasePrice:  money.Must(4000, "USD"),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewUnit: %v", err)
	}
	u.ClearEvents()
	dr, err := daterange.New(feb(10), feb(15))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         "bk-1",
		Unit:       u,
		TenantID:   "tenant-1",
		Range:      dr,
		TotalPrice: money.Must(20000, "USD"),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	b.ClearEvents()
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		if err := unit.Units().Save(ctx, u); err != nil {
			t.Fatalf("save unit: %v", err)
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("save booking: %v", err)
		}
	})

	handler := &GenerateInvoiceHandler{UoWFactory: env.factory}
	_, err = handler.Handle(context.Background(), GenerateInvoiceCommand{CommandID: "inv-1", BookingID: "bk-1"})
	if !errors.Is(err, domainbooking.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestPayInvoice(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")
	env.drainOutbox(t)

	handler := &PayInvoiceHandler{UoWFactory: env.factory}
	res, err := handler.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-1"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.Status != string(domainbilling.InvoicePaid) {
		t.Errorf("status: got %s, want paid", res.Status)
	}

	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		inv, err := unit.Invoices().ByID(ctx, "inv-1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if inv.Status != domainbilling.InvoicePaid {
			t.Errorf("stored status: got %s, want paid", inv.Status)
		}
		if inv.PayoutStatus != domainbilling.PayoutProcessed {
			t.Errorf("payout status: got %s, want processed", inv.PayoutStatus)
		}

		payments, err := unit.Ledger().RecentByUser(ctx, "tenant-1", 0)
		if err != nil {
			t.Fatalf("RecentByUser: %v", err)
		}
		if len(payments) != 1 || payments[0].Type != domainbilling.EntryPayment {
			t.Errorf("tenant entries: got %+v", payments)
		}
		payouts, err := unit.Ledger().RecentByUser(ctx, "landlord-1", 0)
		if err != nil {
			t.Fatalf("RecentByUser: %v", err)
		}
		if len(payouts) != 1 || payouts[0].Type != domainbilling.EntryPayout || !payouts[0].IsVerified {
			t.Errorf("landlord entries: got %+v", payouts)
		}
	})

	names := env.drainOutbox(t)
	if len(names) != 1 || names[0] != "invoice.paid" {
		t.Errorf("outbox: got %v, want [invoice.paid]", names)
	}
}

func TestPayInvoiceWrongPayer(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")
	env.drainOutbox(t)

	handler := &PayInvoiceHandler{UoWFactory: env.factory}
	_, err := handler.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-2"})
	if !errors.Is(err, domainbilling.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}

	// The rejected attempt must leave the invoice and ledger untouched.
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		inv, err := unit.Invoices().ByID(ctx, "inv-1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if inv.Status != domainbilling.InvoicePending {
			t.Errorf("status: got %s, want pending", inv.Status)
		}
		entries, err := unit.Ledger().RecentByUser(ctx, "tenant-2", 0)
		if err != nil {
			t.Fatalf("RecentByUser: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("rejected payment left ledger rows: %+v", entries)
		}
	})
}

func TestPayInvoiceDoublePayment(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")

	handler := &PayInvoiceHandler{UoWFactory: env.factory}
	if _, err := handler.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-1"}); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	_, err := handler.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-1"})
	if !errors.Is(err, domainbilling.ErrAlreadyPaid) {
		t.Errorf("got %v, want ErrAlreadyPaid", err)
	}

	// No second pair of ledger entries.
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		entries, err := unit.Ledger().RecentByUser(ctx, "landlord-1", 0)
		if err != nil {
			t.Fatalf("RecentByUser: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("payout entries: got %d, want 1", len(entries))
		}
	})
}

func TestLandlordLedger(t *testing.T) {
	env := newTestEnv()
	env.seedConfirmedBooking(t, "bk-1")
	env.issueInvoice(t, "inv-1", "bk-1")
	pay := &PayInvoiceHandler{UoWFactory: env.factory}
	if _, err := pay.Handle(context.Background(), PayInvoiceCommand{InvoiceID: "inv-1", ActorID: "tenant-1"}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	// An unverified payout must show in the list but not the balance.
	env.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		entry, err := domainbilling.NewLedgerEntry(domainbilling.EntryParams{
			ID:        "le-manual",
			UserID:    "landlord-1",
			Amount:    money.Must(99900, "USD"),
			Type:      domainbilling.EntryPayout,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("NewLedgerEntry: %v", err)
		}
		if err := unit.Ledger().Append(ctx, entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	})

	handler := &LandlordLedgerHandler{UoWFactory: env.factory}
	res, err := handler.Handle(context.Background(), LandlordLedgerQuery{
		ActorID:   "landlord-1",
		ActorRole: string(domainuser.RoleLandlord),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Balance != "200.00 USD" {
		t.Errorf("balance: got %s, want 200.00 USD", res.Balance)
	}
	if len(res.RecentTransactions) != 2 {
		t.Errorf("recent: got %d entries, want 2", len(res.RecentTransactions))
	}
}

func TestLandlordLedgerRequiresLandlordRole(t *testing.T) {
	env := newTestEnv()
	handler := &LandlordLedgerHandler{UoWFactory: env.factory}
	_, err := handler.Handle(context.Background(), LandlordLedgerQuery{
		ActorID:   "tenant-1",
		ActorRole: string(domainuser.RoleTenant),
	})
	if !errors.Is(err, domainbilling.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}
