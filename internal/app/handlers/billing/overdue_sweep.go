package billing

import (
	"context"
	"log/slog"
	"time"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
)

const sweepOverdueKey = "billing.sweep_overdue"

type SweepOverdueCommand struct {
	Now time.Time
}

func (c SweepOverdueCommand) Key() string { return sweepOverdueKey }

type SweepOverdueResult struct {
	Flipped int `json:"flipped"`
}

// SweepOverdueHandler flips pending invoices past their due date to overdue.
// Run periodically by the schedule runner.
type SweepOverdueHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *SweepOverdueHandler) Handle(ctx context.Context, cmd SweepOverdueCommand) (*SweepOverdueResult, error) {
	unit, ctx, commit, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer cleanup()

	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	due, err := unit.Invoices().ListDue(ctx, now)
	if err != nil {
		return nil, err
	}
	flipped := 0
	for _, inv := range due {
		if err := inv.MarkOverdue(now); err != nil {
			continue
		}
		if err := unit.Invoices().Save(ctx, inv); err != nil {
			return nil, err
		}
		pending := inv.PendingEvents()
		inv.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoderOrDefault(h.Encoder), pending); err != nil {
			return nil, err
		}
		flipped++
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, err
		}
	}
	if h.Logger != nil && flipped > 0 {
		h.Logger.Info("overdue sweep finished", "flipped", flipped)
	}
	return &SweepOverdueResult{Flipped: flipped}, nil
}

var _ commands.Handler[SweepOverdueCommand, *SweepOverdueResult] = (*SweepOverdueHandler)(nil)
