package booking

import (
	"context"
	"errors"
	"time"

	"rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/events"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/unit"
	"rentdesk/internal/domain/user"
)

var (
	ErrNotFound       = errors.New("booking: not found")
	ErrInvalidState   = errors.New("booking: invalid state transition")
	ErrTenantRequired = errors.New("booking: tenant id required")
	ErrForbidden      = errors.New("booking: actor is not permitted to perform this operation")
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// BlockingStatuses are the statuses whose bookings occupy the unit for
// availability purposes. Cancelled bookings never block.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

type Booking struct {
	ID         ID
	UnitID     unit.ID
	OwnerID    user.ID
	TenantID   user.ID
	Range      daterange.DateRange
	Status     Status
	TotalPrice money.Money
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	// AnyOverlapping reports whether any booking on the unit with one of the
	// given statuses overlaps the (already buffer-padded) range, skipping
	// excludeID when non-empty.
	AnyOverlapping(ctx context.Context, unitID unit.ID, padded daterange.DateRange, statuses []Status, excludeID ID) (bool, error)
	ListByTenant(ctx context.Context, tenantID user.ID) ([]*Booking, error)
	ListByOwner(ctx context.Context, ownerID user.ID) ([]*Booking, error)
	// DeleteByUnit removes every booking of the unit and returns how many
	// rows went away. Used by the explicit unit-delete cascade.
	DeleteByUnit(ctx context.Context, unitID unit.ID) (int64, error)
}

type CreateParams struct {
	ID         ID
	Unit       *unit.Unit
	TenantID   user.ID
	Range      daterange.DateRange
	TotalPrice money.Money
	CreatedAt  time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.TenantID == "" {
		return nil, ErrTenantRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		UnitID:     params.Unit.ID,
		OwnerID:    params.Unit.OwnerID,
		TenantID:   params.TenantID,
		Range:      params.Range,
		Status:     StatusPending,
		TotalPrice: params.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		UnitID:    b.UnitID,
		TenantID:  b.TenantID,
		Range:     b.Range,
		Total:     b.TotalPrice,
		At:        now,
	})
	return b, nil
}

// Confirm is only legal from pending, which makes the confirmed transition
// edge-triggered: a booking that is already confirmed cannot re-enter the
// state and so cannot raise a second BookingConfirmed event.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, UnitID: b.UnitID, TenantID: b.TenantID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, UnitID: b.UnitID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, UnitID: b.UnitID, TenantID: b.TenantID, At: b.UpdatedAt})
	return nil
}
