package policies

import (
	"context"

	"rentdesk/internal/domain/user"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// NotifierPort delivers best-effort user notifications. Failures are logged
// by the caller and never propagate to the triggering operation.
type NotifierPort interface {
	Notify(ctx context.Context, userID user.ID, message string, severity Severity) error
}
