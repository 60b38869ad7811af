package unit

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentdesk/internal/domain/shared/events"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/user"
)

var (
	ErrNotFound       = errors.New("unit: not found")
	ErrTitleRequired  = errors.New("unit: title is required")
	ErrNumberRequired = errors.New("unit: unit number is required")
	ErrOwnerRequired  = errors.New("unit: owner is required")
	ErrBasePrice      = errors.New("unit: base price must be positive")
	ErrBufferNegative = errors.New("unit: turnover buffer hours must be >= 0")
)

type ID string
type PropertyID string

// Unit is the bookable entity: a room or apartment inside a property.
type Unit struct {
	ID                  ID
	PropertyID          PropertyID
	OwnerID             user.ID
	Number              string
	Title               string
	Description         string
	BasePrice           money.Money
	TurnoverBufferHours int
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Unit, error)
	Save(ctx context.Context, u *Unit) error
	ListByOwner(ctx context.Context, ownerID user.ID) ([]*Unit, error)
	// Delete removes the unit. Cascading its bookings is the caller's
	// responsibility; repositories only delete the unit row.
	Delete(ctx context.Context, id ID) error
}

type CreateParams struct {
	ID                  ID
	PropertyID          PropertyID
	OwnerID             user.ID
	Number              string
	Title               string
	Description         string
	BasePrice           money.Money
	TurnoverBufferHours int
	CreatedAt           time.Time
}

func NewUnit(params CreateParams) (*Unit, error) {
	if strings.TrimSpace(string(params.OwnerID)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Number) == "" {
		return nil, ErrNumberRequired
	}
	if params.BasePrice.Amount <= 0 {
		return nil, ErrBasePrice
	}
	if params.TurnoverBufferHours < 0 {
		return nil, ErrBufferNegative
	}
	now := params.CreatedAt.UTC()
	u := &Unit{
		ID:                  params.ID,
		PropertyID:          params.PropertyID,
		OwnerID:             params.OwnerID,
		Number:              strings.TrimSpace(params.Number),
		Title:               strings.TrimSpace(params.Title),
		Description:         params.Description,
		BasePrice:           params.BasePrice,
		TurnoverBufferHours: params.TurnoverBufferHours,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	u.Record(UnitListed{UnitID: u.ID, OwnerID: u.OwnerID, At: now})
	return u, nil
}

// TurnoverBuffer converts the configured whole-hour buffer into a duration.
// 12 hours stays half a day; the fraction is never rounded away.
func (u *Unit) TurnoverBuffer() time.Duration {
	return time.Duration(u.TurnoverBufferHours) * time.Hour
}

type UpdateParams struct {
	Title               *string
	Description         *string
	BasePrice           *money.Money
	TurnoverBufferHours *int
	Active              *bool
}

func (u *Unit) Apply(params UpdateParams, now time.Time) error {
	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return ErrTitleRequired
		}
		u.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		u.Description = *params.Description
	}
	if params.BasePrice != nil {
		if params.BasePrice.Amount <= 0 {
			return ErrBasePrice
		}
		u.BasePrice = *params.BasePrice
	}
	if params.TurnoverBufferHours != nil {
		if *params.TurnoverBufferHours < 0 {
			return ErrBufferNegative
		}
		u.TurnoverBufferHours = *params.TurnoverBufferHours
	}
	if params.Active != nil {
		u.Active = *params.Active
	}
	u.UpdatedAt = now.UTC()
	return nil
}
