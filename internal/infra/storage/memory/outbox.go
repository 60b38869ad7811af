package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentdesk/internal/app/outbox"
	infraoutbox "rentdesk/internal/infra/outbox"
)

const (
	outboxStateNew     = "NEW"
	outboxStateClaimed = "CLAIMED"
	outboxStateSent    = "SENT"
	outboxStateFailed  = "FAILED"
)

// Outbox keeps committed event records in memory and feeds the same worker
// loop the mongo store does.
type Outbox struct {
	mu      sync.Mutex
	records []*infraoutbox.EventDocument
	wake    chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1)}
}

// insert is called by the unit of work on Commit with the staged records.
func (o *Outbox) insert(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	now := time.Now().UTC()
	for _, rec := range records {
		o.records = append(o.records, &infraoutbox.EventDocument{
			ID:          rec.ID,
			Name:        rec.Name,
			Payload:     rec.Payload,
			OccurredAt:  rec.OccurredAt,
			Aggregate:   rec.Aggregate,
			Headers:     rec.Headers,
			State:       outboxStateNew,
			NextAttempt: now,
		})
	}
	o.mu.Unlock()
	o.signal()
}

// Add supports direct event recording outside a unit of work.
func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.insert(record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.signal()
	return nil
}

func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, doc := range o.records {
		if doc.State != outboxStateNew && doc.State != outboxStateFailed {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = outboxStateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		claimed := *doc
		return &claimed, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.ID == id {
			doc.State = outboxStateSent
			doc.SentAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.ID == id {
			doc.State = outboxStateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Store = (*Outbox)(nil)
var _ infraoutbox.Waker = (*Outbox)(nil)
