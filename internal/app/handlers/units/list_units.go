package units

import (
	"context"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/uow"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const hostUnitsKey = "units.by_host"

type HostUnitsQuery struct {
	OwnerID string
}

func (q HostUnitsQuery) Key() string { return hostUnitsKey }

type UnitView struct {
	UnitID              string `json:"unit_id"`
	PropertyID          string `json:"property_id"`
	Number              string `json:"number"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	BasePrice           string `json:"base_price"`
	TurnoverBufferHours int    `json:"turnover_buffer_hours"`
	Active              bool   `json:"active"`
}

type HostUnitsResult struct {
	Units []UnitView `json:"units"`
}

type HostUnitsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *HostUnitsHandler) Handle(ctx context.Context, q HostUnitsQuery) (*HostUnitsResult, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	list, err := unit.Units().ListByOwner(ctx, domainuser.ID(q.OwnerID))
	if err != nil {
		return nil, err
	}
	views := make([]UnitView, 0, len(list))
	for _, u := range list {
		views = append(views, toView(u))
	}
	return &HostUnitsResult{Units: views}, nil
}

func toView(u *domainunit.Unit) UnitView {
	return UnitView{
		UnitID:              string(u.ID),
		PropertyID:          string(u.PropertyID),
		Number:              u.Number,
		Title:               u.Title,
		Description:         u.Description,
		BasePrice:           u.BasePrice.String(),
		TurnoverBufferHours: u.TurnoverBufferHours,
		Active:              u.Active,
	}
}

var _ queries.Handler[HostUnitsQuery, *HostUnitsResult] = (*HostUnitsHandler)(nil)
