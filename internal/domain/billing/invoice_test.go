package billing

import (
	"testing"
	"time"

	"rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/unit"
)

func confirmedBooking(t *testing.T) *booking.Booking {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b, err := booking.NewBooking(booking.CreateParams{
		ID:         "bk-1",
		Unit:       &unit.Unit{ID: "unit-1", OwnerID: "landlord-1", BasePrice: money.Must(4000, "USD")},
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
	return b
}

func issuedInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := IssueInvoice(IssueParams{
		ID:       "inv-1",
		Booking:  confirmedBooking(t),
		Amount:   money.Must(20000, "USD"),
		IssuedAt: time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("IssueInvoice: %v", err)
	}
	return inv
}

func TestIssueInvoiceDefaults(t *testing.T) {
	inv := issuedInvoice(t)
	if inv.Status != InvoicePending {
		t.Errorf("status: got %s, want pending", inv.Status)
	}
	if inv.PayoutStatus != PayoutPending {
		t.Errorf("payout status: got %s, want pending", inv.PayoutStatus)
	}
	if inv.TenantID != "tenant-1" || inv.OwnerID != "landlord-1" {
		t.Errorf("parties not copied from booking: tenant=%s owner=%s", inv.TenantID, inv.OwnerID)
	}
	if !inv.DueDate.Equal(inv.IssueDate.Add(DueIn)) {
		t.Errorf("due date: got %v, want issue+%v", inv.DueDate, DueIn)
	}
	events := inv.PendingEvents()
	if len(events) != 1 || events[0].EventName() != "invoice.issued" {
		t.Errorf("expected a single invoice.issued event, got %v", events)
	}
}

func TestIssueInvoiceRequiresBooking(t *testing.T) {
	if _, err := IssueInvoice(IssueParams{ID: "inv-1"}); err == nil {
		t.Fatal("expected error without a booking")
	}
}

func TestMarkPaidPreconditionOrder(t *testing.T) {
	now := time.Now()

	inv := issuedInvoice(t)
	if err := inv.MarkPaid("tenant-1", now); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if err := inv.MarkPaid("tenant-1", now); err != ErrAlreadyPaid {
		t.Errorf("double pay: got %v, want ErrAlreadyPaid", err)
	}

	cancelled := issuedInvoice(t)
	if err := cancelled.CancelInvoice(now); err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}
	if err := cancelled.MarkPaid("tenant-1", now); err != ErrInvoiceCancelled {
		t.Errorf("pay cancelled: got %v, want ErrInvoiceCancelled", err)
	}
}

func TestOverdueInvoiceStaysPayable(t *testing.T) {
	inv := issuedInvoice(t)
	if err := inv.MarkOverdue(inv.DueDate.Add(time.Hour)); err != nil {
		t.Fatalf("MarkOverdue: %v", err)
	}
	if err := inv.MarkPaid("tenant-1", time.Now()); err != nil {
		t.Errorf("overdue invoice should still accept payment: %v", err)
	}
}

func TestMarkOverdueRules(t *testing.T) {
	inv := issuedInvoice(t)
	if err := inv.MarkOverdue(inv.DueDate.Add(-time.Hour)); err != ErrInvalidState {
		t.Errorf("before due date: got %v, want ErrInvalidState", err)
	}
	if err := inv.MarkOverdue(inv.DueDate); err != nil {
		t.Fatalf("at due date: %v", err)
	}
	if inv.Status != InvoiceOverdue {
		t.Errorf("status: got %s, want overdue", inv.Status)
	}
	if err := inv.MarkOverdue(inv.DueDate.Add(time.Hour)); err != ErrInvalidState {
		t.Errorf("re-flip: got %v, want ErrInvalidState", err)
	}

	paid := issuedInvoice(t)
	_ = paid.MarkPaid("tenant-1", time.Now())
	if err := paid.MarkOverdue(paid.DueDate.Add(time.Hour)); err != ErrInvalidState {
		t.Errorf("paid invoice: got %v, want ErrInvalidState", err)
	}
}

func TestMarkPayoutProcessedRequiresPaid(t *testing.T) {
	inv := issuedInvoice(t)
	if err := inv.MarkPayoutProcessed(time.Now()); err != ErrInvalidState {
		t.Errorf("pending invoice: got %v, want ErrInvalidState", err)
	}
	_ = inv.MarkPaid("tenant-1", time.Now())
	if err := inv.MarkPayoutProcessed(time.Now()); err != nil {
		t.Fatalf("MarkPayoutProcessed: %v", err)
	}
	if inv.PayoutStatus != PayoutProcessed {
		t.Errorf("payout status: got %s, want processed", inv.PayoutStatus)
	}
}

func TestNewLedgerEntryValidation(t *testing.T) {
	if _, err := NewLedgerEntry(EntryParams{Type: EntryPayment}); err != ErrEntryUserRequired {
		t.Errorf("missing user: got %v, want ErrEntryUserRequired", err)
	}
	if _, err := NewLedgerEntry(EntryParams{UserID: "tenant-1", Type: "transfer"}); err != ErrEntryType {
		t.Errorf("bad type: got %v, want ErrEntryType", err)
	}
	entry, err := NewLedgerEntry(EntryParams{
		ID:        "le-1",
		UserID:    "landlord-1",
		Amount:    money.Must(20000, "USD"),
		Type:      EntryPayout,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("NewLedgerEntry: %v", err)
	}
	if !entry.CreatedAt.Equal(entry.CreatedAt.UTC()) {
		t.Error("timestamps should be stored in UTC")
	}
}
