package booking

import (
	"context"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/middleware"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainbooking "rentdesk/internal/domain/booking"
	domainpricing "rentdesk/internal/domain/pricing"
	domainrange "rentdesk/internal/domain/shared/daterange"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	CommandID       string
	UnitID          string
	TenantID        string
	Start           time.Time
	End             time.Time
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	BookingID  string `json:"booking_id"`
	Status     string `json:"status"`
	TotalPrice string `json:"total_price"`
}

// CreateBookingHandler owns the atomic create-booking path. All
// double-booking prevention rests on its lock-then-recheck ordering: the
// unit lock is taken first, availability is re-validated under it, and the
// second of two racing requests always observes the first's booking row.
type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	dr, err := domainrange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	if err := unit.LockUnit(ctx, domainunit.ID(cmd.UnitID)); err != nil {
		return nil, err
	}
	target, err := unit.Units().ByID(ctx, domainunit.ID(cmd.UnitID))
	if err != nil {
		return nil, err
	}

	// Re-check under the lock; the pre-lock answer may already be stale.
	checker := domainbooking.AvailabilityChecker{Bookings: unit.Bookings()}
	free, err := checker.IsAvailable(ctx, target, dr, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, domainbooking.ConflictError{UnitID: target.ID, Buffer: target.TurnoverBuffer()}
	}

	total, err := domainpricing.Quote(target, dr)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.ID(cmd.CommandID),
		Unit:       target,
		TenantID:   domainuser.ID(cmd.TenantID),
		Range:      dr,
		TotalPrice: total,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	// Staged with the booking write: the confirmation notification only
	// ever fires for bookings that actually committed.
	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoderOrDefault(h.Encoder), pending); err != nil {
		return nil, err
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, err
		}
	}
	return &CreateBookingResult{
		BookingID:  string(b.ID),
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice.String(),
	}, nil
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
