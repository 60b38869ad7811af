package booking

import (
	"context"
	"errors"
	"testing"

	domainbooking "rentdesk/internal/domain/booking"
)

func createPendingBooking(t *testing.T, env testEnv, id string) {
	t.Helper()
	handler := &CreateBookingHandler{UoWFactory: env.factory}
	if _, err := handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: id,
		UnitID:    "unit-1",
		TenantID:  "tenant-1",
		Start:     feb(10),
		End:       feb(15),
	}); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	env.drainOutbox(t)
}

func TestConfirmBooking(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	createPendingBooking(t, env, "bk-1")
	handler := &ConfirmBookingHandler{UoWFactory: env.factory}
	ctx := context.Background()

	res, err := handler.Handle(ctx, ConfirmBookingCommand{BookingID: "bk-1", ActorID: "landlord-1"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != string(domainbooking.StatusConfirmed) {
		t.Errorf("status: got %s, want confirmed", res.Status)
	}
	names := env.drainOutbox(t)
	if len(names) != 1 || names[0] != "booking.confirmed" {
		t.Errorf("outbox: got %v, want [booking.confirmed]", names)
	}

	// Confirm is edge-triggered; the second call must fail and stage nothing.
	if _, err := handler.Handle(ctx, ConfirmBookingCommand{BookingID: "bk-1", ActorID: "landlord-1"}); !errors.Is(err, domainbooking.ErrInvalidState) {
		t.Errorf("re-confirm: got %v, want ErrInvalidState", err)
	}
	if doc := env.claimOne(t); doc != nil {
		t.Errorf("re-confirm staged outbox record %s", doc.Name)
	}
}

func TestConfirmBookingRequiresOwner(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	createPendingBooking(t, env, "bk-1")
	handler := &ConfirmBookingHandler{UoWFactory: env.factory}

	_, err := handler.Handle(context.Background(), ConfirmBookingCommand{BookingID: "bk-1", ActorID: "tenant-1"})
	if !errors.Is(err, domainbooking.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestCancelBookingActors(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	ctx := context.Background()
	cancel := &CancelBookingHandler{UoWFactory: env.factory}

	createPendingBooking(t, env, "bk-1")
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", ActorID: "tenant-1"}); err != nil {
		t.Errorf("tenant cancel: %v", err)
	}

	createPendingBooking(t, env, "bk-2")
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-2", ActorID: "landlord-1"}); err != nil {
		t.Errorf("owner cancel: %v", err)
	}

	createPendingBooking(t, env, "bk-3")
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-3", ActorID: "stranger"}); !errors.Is(err, domainbooking.ErrForbidden) {
		t.Errorf("stranger cancel: got %v, want ErrForbidden", err)
	}
}

func TestCancelFreesTheDates(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	ctx := context.Background()
	createPendingBooking(t, env, "bk-1")

	cancel := &CancelBookingHandler{UoWFactory: env.factory}
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", ActorID: "tenant-1"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	env.drainOutbox(t)

	create := &CreateBookingHandler{UoWFactory: env.factory}
	if _, err := create.Handle(ctx, CreateBookingCommand{
		CommandID: "bk-2",
		UnitID:    "unit-1",
		TenantID:  "tenant-2",
		Start:     feb(10),
		End:       feb(15),
	}); err != nil {
		t.Errorf("rebooking cancelled dates: %v", err)
	}
}

func TestCompleteBooking(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	ctx := context.Background()
	createPendingBooking(t, env, "bk-1")

	complete := &CompleteBookingHandler{UoWFactory: env.factory}
	if _, err := complete.Handle(ctx, CompleteBookingCommand{BookingID: "bk-1", ActorID: "landlord-1"}); !errors.Is(err, domainbooking.ErrInvalidState) {
		t.Errorf("complete pending: got %v, want ErrInvalidState", err)
	}

	confirm := &ConfirmBookingHandler{UoWFactory: env.factory}
	if _, err := confirm.Handle(ctx, ConfirmBookingCommand{BookingID: "bk-1", ActorID: "landlord-1"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	res, err := complete.Handle(ctx, CompleteBookingCommand{BookingID: "bk-1", ActorID: "landlord-1"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Status != string(domainbooking.StatusCompleted) {
		t.Errorf("status: got %s, want completed", res.Status)
	}
}

func TestCheckAvailabilityQuery(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 24)
	createPendingBooking(t, env, "bk-1")
	handler := &CheckAvailabilityHandler{UoWFactory: env.factory}
	ctx := context.Background()

	res, err := handler.Handle(ctx, CheckAvailabilityQuery{UnitID: "unit-1", Start: feb(15), End: feb(20)})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Available {
		t.Error("range inside the turnover buffer should read unavailable")
	}
	if res.TurnoverBufferHours != 24 {
		t.Errorf("buffer hours: got %d, want 24", res.TurnoverBufferHours)
	}

	res, err = handler.Handle(ctx, CheckAvailabilityQuery{UnitID: "unit-1", Start: feb(16), End: feb(20)})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.Available {
		t.Error("range past the buffer should be available")
	}

	// Inverted ranges answer unavailable instead of erroring.
	res, err = handler.Handle(ctx, CheckAvailabilityQuery{UnitID: "unit-1", Start: feb(20), End: feb(16)})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Available {
		t.Error("inverted range must read unavailable")
	}
}

func TestListBookings(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "unit-1", 0)
	ctx := context.Background()
	create := &CreateBookingHandler{UoWFactory: env.factory}
	if _, err := create.Handle(ctx, CreateBookingCommand{
		CommandID: "bk-1", UnitID: "unit-1", TenantID: "tenant-1", Start: feb(10), End: feb(12),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := create.Handle(ctx, CreateBookingCommand{
		CommandID: "bk-2", UnitID: "unit-1", TenantID: "tenant-2", Start: feb(20), End: feb(22),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine := &MyBookingsHandler{UoWFactory: env.factory}
	res, err := mine.Handle(ctx, MyBookingsQuery{TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("MyBookings: %v", err)
	}
	if len(res.Bookings) != 1 || res.Bookings[0].BookingID != "bk-1" {
		t.Errorf("tenant list: got %+v", res.Bookings)
	}

	host := &HostBookingsHandler{UoWFactory: env.factory}
	hres, err := host.Handle(ctx, HostBookingsQuery{OwnerID: "landlord-1"})
	if err != nil {
		t.Fatalf("HostBookings: %v", err)
	}
	if len(hres.Bookings) != 2 {
		t.Errorf("host list: got %d bookings, want 2", len(hres.Bookings))
	}
}
