package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	docs   []*EventDocument
	sent   []string
	failed []string
	next   time.Time
}

func (s *fakeStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(s.docs) == 0 {
		return nil, nil
	}
	doc := s.docs[0]
	s.docs = s.docs[1:]
	doc.ClaimedBy = workerID
	return doc, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	s.failed = append(s.failed, id)
	s.next = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	messages []published
	err      error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic, key, payload, headers})
	return nil
}

func confirmedDoc() *EventDocument {
	return &EventDocument{
		ID:         "evt-1",
		Name:       "booking.confirmed",
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
	}
}

func TestProcessOncePublishesCloudEvent(t *testing.T) {
	store := &fakeStore{docs: []*EventDocument{confirmedDoc()}}
	producer := &fakeProducer{}
	consumed := 0
	w := &Worker{
		Store:    store,
		Producer: producer,
		ID:       "worker-1",
		Consumers: map[string]Consumer{
			"booking.confirmed": func(ctx context.Context, doc *EventDocument) error {
				consumed++
				return nil
			},
		},
	}

	processed, err := w.processOnce(context.Background())
	if err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}
	if consumed != 1 {
		t.Errorf("consumer calls: got %d, want 1", consumed)
	}
	if len(store.sent) != 1 || store.sent[0] != "evt-1" {
		t.Errorf("sent acks: %v", store.sent)
	}
	if len(producer.messages) != 1 {
		t.Fatalf("published: got %d messages", len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.topic != "booking.events.v1" {
		t.Errorf("topic: got %q, want %q", msg.topic, "booking.events.v1")
	}
	if msg.key != "bk-1" {
		t.Errorf("key: got %q, want %q", msg.key, "bk-1")
	}
	var evt map[string]any
	if err := json.Unmarshal(msg.payload, &evt); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if evt["type"] != "booking.confirmed.v1" {
		t.Errorf("type: got %v", evt["type"])
	}
	if evt["specversion"] != "1.0" {
		t.Errorf("specversion: got %v", evt["specversion"])
	}
	data, ok := evt["data"].(map[string]any)
	if !ok || data["booking_id"] != "bk-1" {
		t.Errorf("data: got %v", evt["data"])
	}
	if msg.headers["content-type"] != "application/cloudevents+json" {
		t.Errorf("content-type header: got %q", msg.headers["content-type"])
	}

	// Queue drained.
	processed, err = w.processOnce(context.Background())
	if err != nil || processed {
		t.Errorf("empty store: processed=%v err=%v", processed, err)
	}
}

func TestProcessOnceFailingConsumerKeepsRecord(t *testing.T) {
	doc := confirmedDoc()
	doc.Attempts = 1
	store := &fakeStore{docs: []*EventDocument{doc}}
	producer := &fakeProducer{}
	w := &Worker{
		Store:    store,
		Producer: producer,
		Backoff:  []time.Duration{time.Second, time.Minute},
		Consumers: map[string]Consumer{
			"booking.confirmed": func(ctx context.Context, doc *EventDocument) error {
				return errors.New("invoice generation failed")
			},
		},
	}

	processed, err := w.processOnce(context.Background())
	if err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}
	if len(producer.messages) != 0 {
		t.Error("record must not be published when the consumer fails")
	}
	if len(store.sent) != 0 {
		t.Error("record must not be acked when the consumer fails")
	}
	if len(store.failed) != 1 || store.failed[0] != "evt-1" {
		t.Fatalf("failed acks: %v", store.failed)
	}
	wait := time.Until(store.next)
	if wait < 30*time.Second {
		t.Errorf("second attempt should use the next backoff step, got %v", wait)
	}
}

func TestProcessOnceWithoutProducer(t *testing.T) {
	store := &fakeStore{docs: []*EventDocument{confirmedDoc()}}
	w := &Worker{Store: store}

	processed, err := w.processOnce(context.Background())
	if err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}
	if len(store.sent) != 1 {
		t.Errorf("record without consumer or producer should still be acked: %v", store.sent)
	}
}

func TestTopicFor(t *testing.T) {
	cases := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "booking.confirmed", "booking.events.v1"},
		{"", "invoice.paid", "invoice.events.v1"},
		{"", "heartbeat", "heartbeat.events.v1"},
		{"staging.", "booking.requested", "staging.booking.events.v1"},
	}
	for _, tc := range cases {
		w := &Worker{TopicPrefix: tc.prefix}
		if got := w.topicFor(tc.name); got != tc.want {
			t.Errorf("topicFor(%q) with prefix %q: got %q, want %q", tc.name, tc.prefix, got, tc.want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{Store: &fakeStore{}, Interval: 10 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
