package booking

import (
	"context"
	"fmt"
	"time"

	"rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/unit"
)

// ConflictError reports a rejected range together with the turnover buffer
// that caused the rejection.
type ConflictError struct {
	UnitID unit.ID
	Buffer time.Duration
}

func (e ConflictError) Error() string {
	if e.Buffer > 0 {
		return fmt.Sprintf("booking: unit %s is unavailable for the requested dates (requires %s turnover buffer between stays)", e.UnitID, e.Buffer)
	}
	return fmt.Sprintf("booking: unit %s is unavailable for the requested dates", e.UnitID)
}

// AvailabilityChecker answers whether a unit is free for a range. It is a
// pure read over the booking repository; callers that need the answer to
// stay true while they act on it must hold the unit lock.
type AvailabilityChecker struct {
	Bookings Repository
}

// IsAvailable applies the effective-interval rule: the requested range is
// padded by the unit's turnover buffer on both ends and compared against the
// raw ranges of pending, confirmed and completed bookings. Two bookings
// conflict iff existing.Start < new.End+buffer and existing.End+buffer >
// new.Start. An invalid range is simply unavailable, not an error.
func (c AvailabilityChecker) IsAvailable(ctx context.Context, u *unit.Unit, dr daterange.DateRange, excludeID ID) (bool, error) {
	if err := dr.Validate(); err != nil {
		return false, nil
	}
	padded := dr.Pad(u.TurnoverBuffer())
	taken, err := c.Bookings.AnyOverlapping(ctx, u.ID, padded, BlockingStatuses, excludeID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}
