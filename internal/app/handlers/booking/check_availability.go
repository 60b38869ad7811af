package booking

import (
	"context"
	"time"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/uow"
	domainbooking "rentdesk/internal/domain/booking"
	domainrange "rentdesk/internal/domain/shared/daterange"
	domainunit "rentdesk/internal/domain/unit"
)

const checkAvailabilityKey = "booking.check_availability"

type CheckAvailabilityQuery struct {
	UnitID string
	Start  time.Time
	End    time.Time
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityResult struct {
	UnitID              string `json:"unit_id"`
	Available           bool   `json:"available"`
	TurnoverBufferHours int    `json:"turnover_buffer_hours"`
}

// CheckAvailabilityHandler answers the lock-free availability question.
// The answer is advisory: createBooking re-validates under the unit lock.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (*CheckAvailabilityResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	target, err := unit.Units().ByID(ctx, domainunit.ID(q.UnitID))
	if err != nil {
		return nil, err
	}
	dr := domainrange.DateRange{Start: q.Start.UTC(), End: q.End.UTC()}
	checker := domainbooking.AvailabilityChecker{Bookings: unit.Bookings()}
	free, err := checker.IsAvailable(ctx, target, dr, "")
	if err != nil {
		return nil, err
	}
	return &CheckAvailabilityResult{
		UnitID:              string(target.ID),
		Available:           free,
		TurnoverBufferHours: target.TurnoverBufferHours,
	}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, *CheckAvailabilityResult] = (*CheckAvailabilityHandler)(nil)
