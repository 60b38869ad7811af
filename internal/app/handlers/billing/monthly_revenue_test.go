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
)

// seedStay stores a confirmed booking for the owner's unit over the given
// dates, optionally with a paid invoice.
func (e testEnv) seedStay(t *testing.T, id string, owner string, start, end time.Time, paid bool) {
	t.Helper()
	u, err := domainunit.NewUnit(domainunit.CreateParams{
		ID:         domainunit.ID("unit-" + id),
		PropertyID: "prop-1",
		OwnerID:    domainuser.ID(owner),
		Number:     "1A",
		Title:      "Unit " + id,
		BasePrice:  money.Must(4000, "USD"),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewUnit: %v", err)
	}
	u.ClearEvents()

	dr, err := daterange.New(start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.ID("bk-" + id),
		Unit:       u,
		TenantID:   "tenant-1",
		Range:      dr,
		TotalPrice: u.BasePrice.Multiply(int64(dr.Nights())),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := b.Confirm(time.Now()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	b.ClearEvents()

	inv, err := domainbilling.IssueInvoice(domainbilling.IssueParams{
		ID:       domainbilling.InvoiceID("inv-" + id),
		Booking:  b,
		Amount:   u.BasePrice.Multiply(int64(dr.Nights())),
		IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("IssueInvoice: %v", err)
	}
	if paid {
		if err := inv.MarkPaid(b.TenantID, time.Now()); err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
	}
	inv.ClearEvents()

	e.inUnit(t, func(ctx context.Context, unit uow.UnitOfWork) {
		if err := unit.Units().Save(ctx, u); err != nil {
			t.Fatalf("save unit: %v", err)
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("save booking: %v", err)
		}
		if err := unit.Invoices().Save(ctx, inv); err != nil {
			t.Fatalf("save invoice: %v", err)
		}
	})
}

func TestMonthlyRevenueBuckets(t *testing.T) {
	env := newTestEnv()
	day := func(m time.Month, d int) time.Time {
		return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
	}
	// Two paid February stays, one paid April stay, one unpaid March stay.
	env.seedStay(t, "feb-a", "landlord-1", day(time.February, 10), day(time.February, 15), true) // 200.00
	env.seedStay(t, "feb-b", "landlord-1", day(time.February, 20), day(time.February, 22), true) // 80.00
	env.seedStay(t, "apr", "landlord-1", day(time.April, 1), day(time.April, 4), true)           // 120.00
	env.seedStay(t, "mar", "landlord-1", day(time.March, 5), day(time.March, 8), false)
	// Another landlord's revenue must not leak in.
	env.seedStay(t, "other", "landlord-2", day(time.February, 1), day(time.February, 5), true)

	handler := &MonthlyRevenueHandler{UoWFactory: env.factory}
	res, err := handler.Handle(context.Background(), MonthlyRevenueQuery{
		ActorID:   "landlord-1",
		ActorRole: string(domainuser.RoleLandlord),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	want := []MonthlyRevenueBucket{
		{Label: "Feb 2026", Revenue: "280.00 USD"},
		{Label: "Apr 2026", Revenue: "120.00 USD"},
	}
	if len(res.Months) != len(want) {
		t.Fatalf("months: got %+v, want %+v", res.Months, want)
	}
	for i, bucket := range want {
		if res.Months[i] != bucket {
			t.Errorf("month %d: got %+v, want %+v", i, res.Months[i], bucket)
		}
	}
}

func TestMonthlyRevenueRequiresLandlordRole(t *testing.T) {
	env := newTestEnv()
	handler := &MonthlyRevenueHandler{UoWFactory: env.factory}
	_, err := handler.Handle(context.Background(), MonthlyRevenueQuery{
		ActorID:   "tenant-1",
		ActorRole: string(domainuser.RoleTenant),
	})
	if !errors.Is(err, domainbilling.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}
