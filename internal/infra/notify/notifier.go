package notify

import (
	"context"
	"log/slog"

	"rentdesk/internal/app/policies"
	domainuser "rentdesk/internal/domain/user"
)

// LogNotifier writes notifications to the structured log. It stands in for a
// mail or push channel; delivery stays best effort either way.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, userID domainuser.ID, message string, severity policies.Severity) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.Info("notification", "user_id", string(userID), "severity", string(severity), "message", message)
	return nil
}

var _ policies.NotifierPort = LogNotifier{}
