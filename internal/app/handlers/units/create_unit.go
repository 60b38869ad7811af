package units

import (
	"context"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const createUnitKey = "units.create"

type CreateUnitCommand struct {
	CommandID           string
	PropertyID          string
	OwnerID             string
	Number              string
	Title               string
	Description         string
	BasePriceCents      int64
	Currency            string
	TurnoverBufferHours int
}

func (c CreateUnitCommand) Key() string { return createUnitKey }

type CreateUnitResult struct {
	UnitID string `json:"unit_id"`
}

type CreateUnitHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
}

func (h *CreateUnitHandler) Handle(ctx context.Context, cmd CreateUnitCommand) (*CreateUnitResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	price, err := money.New(cmd.BasePriceCents, cmd.Currency)
	if err != nil {
		return nil, err
	}
	u, err := domainunit.NewUnit(domainunit.CreateParams{
		ID:                  domainunit.ID(cmd.CommandID),
		PropertyID:          domainunit.PropertyID(cmd.PropertyID),
		OwnerID:             domainuser.ID(cmd.OwnerID),
		Number:              cmd.Number,
		Title:               cmd.Title,
		Description:         cmd.Description,
		BasePrice:           price,
		TurnoverBufferHours: cmd.TurnoverBufferHours,
		CreatedAt:           time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Units().Save(ctx, u); err != nil {
		return nil, err
	}

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
	return &CreateUnitResult{UnitID: string(u.ID)}, nil
}

func encoderOrDefault(enc outbox.EventEncoder) outbox.EventEncoder {
	if enc != nil {
		return enc
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CreateUnitCommand, *CreateUnitResult] = (*CreateUnitHandler)(nil)
