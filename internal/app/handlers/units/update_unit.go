package units

import (
	"context"
	"errors"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/uow"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const updateUnitKey = "units.update"

var ErrNotOwner = errors.New("units: actor does not own this unit")

type UpdateUnitCommand struct {
	UnitID              string
	ActorID             string
	Title               *string
	Description         *string
	BasePriceCents      *int64
	Currency            string
	TurnoverBufferHours *int
	Active              *bool
}

func (c UpdateUnitCommand) Key() string { return updateUnitKey }

type UpdateUnitResult struct {
	UnitID string `json:"unit_id"`
}

type UpdateUnitHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UpdateUnitHandler) Handle(ctx context.Context, cmd UpdateUnitCommand) (*UpdateUnitResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	u, err := unit.Units().ByID(ctx, domainunit.ID(cmd.UnitID))
	if err != nil {
		return nil, err
	}
	if u.OwnerID != domainuser.ID(cmd.ActorID) {
		return nil, ErrNotOwner
	}

	params := domainunit.UpdateParams{
		Title:               cmd.Title,
		Description:         cmd.Description,
		TurnoverBufferHours: cmd.TurnoverBufferHours,
		Active:              cmd.Active,
	}
	if cmd.BasePriceCents != nil {
		price, err := money.New(*cmd.BasePriceCents, cmd.Currency)
		if err != nil {
			return nil, err
		}
		params.BasePrice = &price
	}
	if err := u.Apply(params, time.Now()); err != nil {
		return nil, err
	}
	if err := unit.Units().Save(ctx, u); err != nil {
		return nil, err
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, err
		}
	}
	return &UpdateUnitResult{UnitID: string(u.ID)}, nil
}

var _ commands.Handler[UpdateUnitCommand, *UpdateUnitResult] = (*UpdateUnitHandler)(nil)
