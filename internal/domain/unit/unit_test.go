package unit

import (
	"testing"
	"time"

	"rentdesk/internal/domain/shared/money"
)

func validParams() CreateParams {
	return CreateParams{
		ID:                  "unit-1",
		PropertyID:          "prop-1",
		OwnerID:             "landlord-1",
		Number:              "2B",
		Title:               "Garden studio",
		BasePrice:           money.Must(4000, "USD"),
		TurnoverBufferHours: 24,
		CreatedAt:           time.Now(),
	}
}

func TestNewUnitValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"missing owner", func(p *CreateParams) { p.OwnerID = " " }, ErrOwnerRequired},
		{"missing title", func(p *CreateParams) { p.Title = "" }, ErrTitleRequired},
		{"missing number", func(p *CreateParams) { p.Number = "  " }, ErrNumberRequired},
		{"zero price", func(p *CreateParams) { p.BasePrice = money.Money{Currency: "USD"} }, ErrBasePrice},
		{"negative buffer", func(p *CreateParams) { p.TurnoverBufferHours = -1 }, ErrBufferNegative},
	}
	for _, tc := range cases {
		params := validParams()
		tc.mutate(&params)
		if _, err := NewUnit(params); err != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNewUnitRecordsListing(t *testing.T) {
	u, err := NewUnit(validParams())
	if err != nil {
		t.Fatalf("NewUnit: %v", err)
	}
	if !u.Active {
		t.Error("new units start active")
	}
	events := u.PendingEvents()
	if len(events) != 1 || events[0].EventName() != "unit.listed" {
		t.Errorf("expected a single unit.listed event, got %v", events)
	}
}

func TestTurnoverBufferKeepsFractions(t *testing.T) {
	u, _ := NewUnit(validParams())
	u.TurnoverBufferHours = 12
	if got := u.TurnoverBuffer(); got != 12*time.Hour {
		t.Errorf("TurnoverBuffer: got %v, want 12h", got)
	}
	u.TurnoverBufferHours = 0
	if got := u.TurnoverBuffer(); got != 0 {
		t.Errorf("zero buffer: got %v", got)
	}
}

func TestApplyPartialUpdate(t *testing.T) {
	u, _ := NewUnit(validParams())
	newTitle := "Refurbished garden studio"
	newPrice := money.Must(5500, "USD")
	if err := u.Apply(UpdateParams{Title: &newTitle, BasePrice: &newPrice}, time.Now()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if u.Title != newTitle || u.BasePrice.Amount != 5500 {
		t.Errorf("update not applied: title=%q price=%d", u.Title, u.BasePrice.Amount)
	}
	if u.Number != "2B" {
		t.Errorf("untouched fields must survive: number=%q", u.Number)
	}

	empty := ""
	if err := u.Apply(UpdateParams{Title: &empty}, time.Now()); err != ErrTitleRequired {
		t.Errorf("blank title: got %v, want ErrTitleRequired", err)
	}
	bad := money.Must(0, "USD")
	if err := u.Apply(UpdateParams{BasePrice: &bad}, time.Now()); err != ErrBasePrice {
		t.Errorf("zero price: got %v, want ErrBasePrice", err)
	}
}
