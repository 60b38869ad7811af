package unit

import (
	"time"

	"rentdesk/internal/domain/user"
)

type UnitListed struct {
	UnitID  ID
	OwnerID user.ID
	At      time.Time
}

func (e UnitListed) EventName() string     { return "unit.listed" }
func (e UnitListed) AggregateID() string   { return string(e.UnitID) }
func (e UnitListed) OccurredAt() time.Time { return e.At }

type UnitRemoved struct {
	UnitID           ID
	OwnerID          user.ID
	CascadedBookings int64
	At               time.Time
}

func (e UnitRemoved) EventName() string     { return "unit.removed" }
func (e UnitRemoved) AggregateID() string   { return string(e.UnitID) }
func (e UnitRemoved) OccurredAt() time.Time { return e.At }
