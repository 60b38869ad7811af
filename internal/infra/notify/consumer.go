package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"rentdesk/internal/app/policies"
	domainuser "rentdesk/internal/domain/user"
)

// EventConsumer turns broker events back into user notifications. It runs as
// a Kafka consumer group so notification delivery scales independently of
// the outbox worker that published the event.
type EventConsumer struct {
	Notifier policies.NotifierPort
	Logger   *slog.Logger
}

type cloudEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c EventConsumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if c.Notifier == nil {
		return nil
	}
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		if c.Logger != nil {
			c.Logger.Warn("unparseable event message", "topic", msg.Topic, "error", err)
		}
		// Poison messages are acknowledged, not retried forever.
		return nil
	}
	userID, message, severity, ok := describe(evt)
	if !ok {
		return nil
	}
	if err := c.Notifier.Notify(ctx, userID, message, severity); err != nil {
		return err
	}
	return nil
}

func describe(evt cloudEvent) (domainuser.ID, string, policies.Severity, bool) {
	var data struct {
		BookingID string `json:"BookingID"`
		InvoiceID string `json:"InvoiceID"`
		TenantID  string `json:"TenantID"`
		OwnerID   string `json:"OwnerID"`
	}
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return "", "", "", false
	}
	switch evt.Type {
	case "booking.requested.v1":
		return domainuser.ID(data.TenantID), fmt.Sprintf("booking %s requested", data.BookingID), policies.SeverityInfo, data.TenantID != ""
	case "booking.confirmed.v1":
		return domainuser.ID(data.TenantID), fmt.Sprintf("booking %s confirmed", data.BookingID), policies.SeverityInfo, data.TenantID != ""
	case "booking.cancelled.v1":
		return domainuser.ID(data.TenantID), fmt.Sprintf("booking %s cancelled", data.BookingID), policies.SeverityWarning, data.TenantID != ""
	case "invoice.issued.v1":
		return domainuser.ID(data.TenantID), fmt.Sprintf("invoice %s issued", data.InvoiceID), policies.SeverityInfo, data.TenantID != ""
	case "invoice.overdue.v1":
		return domainuser.ID(data.TenantID), fmt.Sprintf("invoice %s is overdue", data.InvoiceID), policies.SeverityWarning, data.TenantID != ""
	default:
		return "", "", "", false
	}
}
