package middleware

import (
	"context"
	"errors"
	"testing"

	"rentdesk/internal/app/commands"
)

type chargeResult struct {
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
}

type chargeCommand struct {
	RequestID string
	Amount    int64
}

func (chargeCommand) Key() string              { return "charge" }
func (c chargeCommand) IdempotencyKey() string { return c.RequestID }
func (chargeCommand) ResultPrototype() any     { return &chargeResult{} }

type plainCommand struct{}

func (plainCommand) Key() string { return "plain" }

type memoryRecords struct {
	records map[string]IdempotencyRecord
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: map[string]IdempotencyRecord{}}
}

func (s *memoryRecords) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *memoryRecords) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.records[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysCachedResult(t *testing.T) {
	store := newMemoryRecords()
	base := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(base, "charge", commands.HandlerFunc[chargeCommand, *chargeResult](
		func(ctx context.Context, cmd chargeCommand) (*chargeResult, error) {
			calls++
			return &chargeResult{ChargeID: "ch-1", Amount: cmd.Amount}, nil
		}))
	bus := ChainCommands(base, Idempotency(store, nil))

	cmd := chargeCommand{RequestID: "req-1", Amount: 500}
	first, err := commands.Dispatch[chargeCommand, *chargeResult](context.Background(), bus, cmd)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := commands.Dispatch[chargeCommand, *chargeResult](context.Background(), bus, cmd)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if calls != 1 {
		t.Errorf("handler calls: got %d, want 1", calls)
	}
	if second.ChargeID != first.ChargeID || second.Amount != first.Amount {
		t.Errorf("replayed result %+v, want %+v", second, first)
	}
}

func TestIdempotencyReplaysCachedError(t *testing.T) {
	store := newMemoryRecords()
	base := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(base, "charge", commands.HandlerFunc[chargeCommand, *chargeResult](
		func(ctx context.Context, cmd chargeCommand) (*chargeResult, error) {
			calls++
			return nil, errors.New("card declined")
		}))
	bus := ChainCommands(base, Idempotency(store, nil))

	cmd := chargeCommand{RequestID: "req-2", Amount: 500}
	if _, err := bus.Dispatch(context.Background(), cmd); err == nil {
		t.Fatal("first dispatch: want error")
	}
	_, err := bus.Dispatch(context.Background(), cmd)
	if err == nil || err.Error() != "card declined" {
		t.Fatalf("replayed error: got %v", err)
	}
	if calls != 1 {
		t.Errorf("handler calls: got %d, want 1", calls)
	}
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	store := newMemoryRecords()
	base := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(base, "charge", commands.HandlerFunc[chargeCommand, *chargeResult](
		func(ctx context.Context, cmd chargeCommand) (*chargeResult, error) {
			calls++
			return &chargeResult{ChargeID: "ch-1", Amount: cmd.Amount}, nil
		}))
	bus := ChainCommands(base, Idempotency(store, nil))

	for _, id := range []string{"req-a", "req-b"} {
		if _, err := bus.Dispatch(context.Background(), chargeCommand{RequestID: id, Amount: 100}); err != nil {
			t.Fatalf("dispatch %s: %v", id, err)
		}
	}
	if calls != 2 {
		t.Errorf("handler calls: got %d, want 2", calls)
	}
}

func TestIdempotencySkipsNonIdempotentAndBlankKeys(t *testing.T) {
	store := newMemoryRecords()
	base := commands.NewInMemoryBus()
	plainCalls := 0
	chargeCalls := 0
	commands.RegisterHandler(base, "plain", commands.HandlerFunc[plainCommand, struct{}](
		func(ctx context.Context, cmd plainCommand) (struct{}, error) {
			plainCalls++
			return struct{}{}, nil
		}))
	commands.RegisterHandler(base, "charge", commands.HandlerFunc[chargeCommand, *chargeResult](
		func(ctx context.Context, cmd chargeCommand) (*chargeResult, error) {
			chargeCalls++
			return &chargeResult{}, nil
		}))
	bus := ChainCommands(base, Idempotency(store, nil))

	for i := 0; i < 2; i++ {
		if _, err := bus.Dispatch(context.Background(), plainCommand{}); err != nil {
			t.Fatalf("plain dispatch: %v", err)
		}
		if _, err := bus.Dispatch(context.Background(), chargeCommand{RequestID: ""}); err != nil {
			t.Fatalf("blank key dispatch: %v", err)
		}
	}
	if plainCalls != 2 {
		t.Errorf("plain handler calls: got %d, want 2", plainCalls)
	}
	if chargeCalls != 2 {
		t.Errorf("blank-key handler calls: got %d, want 2", chargeCalls)
	}
	if len(store.records) != 0 {
		t.Errorf("store should stay empty, has %d records", len(store.records))
	}
}
