package units

import (
	"context"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const deleteUnitKey = "units.delete"

type DeleteUnitCommand struct {
	UnitID  string
	ActorID string
}

func (c DeleteUnitCommand) Key() string { return deleteUnitKey }

type DeleteUnitResult struct {
	UnitID           string `json:"unit_id"`
	CascadedBookings int64  `json:"cascaded_bookings"`
}

// DeleteUnitHandler removes a unit together with every booking that
// references it. Both deletes run in the same unit of work so a failed
// cascade never leaves bookings pointing at a missing unit.
type DeleteUnitHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
}

func (h *DeleteUnitHandler) Handle(ctx context.Context, cmd DeleteUnitCommand) (*DeleteUnitResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := unit.LockUnit(ctx, domainunit.ID(cmd.UnitID)); err != nil {
		return nil, err
	}
	u, err := unit.Units().ByID(ctx, domainunit.ID(cmd.UnitID))
	if err != nil {
		return nil, err
	}
	if u.OwnerID != domainuser.ID(cmd.ActorID) {
		return nil, ErrNotOwner
	}

	cascaded, err := unit.Bookings().DeleteByUnit(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if err := unit.Units().Delete(ctx, u.ID); err != nil {
		return nil, err
	}

	u.Record(domainunit.UnitRemoved{
		UnitID:           u.ID,
		OwnerID:          u.OwnerID,
		CascadedBookings: cascaded,
		At:               time.Now().UTC(),
	})
	pending := u.PendingEvents()
	u.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoderOrDefault(h.Encoder), pending); err != nil {
		return nil, err
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, err
		}
	}
	return &DeleteUnitResult{UnitID: string(u.ID), CascadedBookings: cascaded}, nil
}

var _ commands.Handler[DeleteUnitCommand, *DeleteUnitResult] = (*DeleteUnitHandler)(nil)
