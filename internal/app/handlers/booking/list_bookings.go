package booking

import (
	"context"
	"time"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/uow"
	domainbooking "rentdesk/internal/domain/booking"
	domainuser "rentdesk/internal/domain/user"
)

const (
	myBookingsKey   = "booking.list_mine"
	hostBookingsKey = "booking.list_host"
)

type BookingView struct {
	BookingID  string    `json:"booking_id"`
	UnitID     string    `json:"unit_id"`
	TenantID   string    `json:"tenant_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	TotalPrice string    `json:"total_price"`
}

type MyBookingsQuery struct {
	TenantID string
}

func (q MyBookingsQuery) Key() string { return myBookingsKey }

type HostBookingsQuery struct {
	OwnerID string
}

func (q HostBookingsQuery) Key() string { return hostBookingsKey }

type ListBookingsResult struct {
	Bookings []BookingView `json:"bookings"`
}

type MyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyBookingsHandler) Handle(ctx context.Context, q MyBookingsQuery) (*ListBookingsResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	items, err := unit.Bookings().ListByTenant(ctx, domainuser.ID(q.TenantID))
	if err != nil {
		return nil, err
	}
	return &ListBookingsResult{Bookings: toViews(items)}, nil
}

type HostBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *HostBookingsHandler) Handle(ctx context.Context, q HostBookingsQuery) (*ListBookingsResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	items, err := unit.Bookings().ListByOwner(ctx, domainuser.ID(q.OwnerID))
	if err != nil {
		return nil, err
	}
	return &ListBookingsResult{Bookings: toViews(items)}, nil
}

func toViews(items []*domainbooking.Booking) []BookingView {
	views := make([]BookingView, 0, len(items))
	for _, b := range items {
		views = append(views, BookingView{
			BookingID:  string(b.ID),
			UnitID:     string(b.UnitID),
			TenantID:   string(b.TenantID),
			Start:      b.Range.Start,
			End:        b.Range.End,
			Status:     string(b.Status),
			TotalPrice: b.TotalPrice.String(),
		})
	}
	return views
}

var _ queries.Handler[MyBookingsQuery, *ListBookingsResult] = (*MyBookingsHandler)(nil)
var _ queries.Handler[HostBookingsQuery, *ListBookingsResult] = (*HostBookingsHandler)(nil)
