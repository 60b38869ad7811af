package middleware

import (
	"context"

	"rentdesk/internal/app/commands"
	"rentdesk/internal/app/outbox"
)

// OutboxFlush nudges the outbox dispatch after a successful command. It has
// to sit outside the Transaction middleware in the chain: the wake must fire
// after Commit has made the staged records claimable.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
