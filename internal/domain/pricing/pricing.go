package pricing

import (
	"errors"
	"time"

	"rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/money"
	"rentdesk/internal/domain/unit"
)

var ErrNoNights = errors.New("pricing: stay must cover at least one night")

// PeakSurchargePercent is added on top of the base total for stays that
// start in peak season.
const PeakSurchargePercent = 20

// Quote prices a stay: base price times nights, plus the peak surcharge when
// the stay starts in June, July or August. The surcharge is keyed on the
// start month only; a stay from May 31 to June 2 is not surcharged while one
// from June 30 to July 2 is. Deterministic, no side effects.
func Quote(u *unit.Unit, dr daterange.DateRange) (money.Money, error) {
	if err := dr.Validate(); err != nil {
		return money.Money{}, err
	}
	nights := dr.Nights()
	if nights <= 0 {
		return money.Money{}, ErrNoNights
	}
	total := u.BasePrice.Multiply(int64(nights))
	if isPeakMonth(dr.Start.Month()) {
		surcharged, err := total.Add(total.Percent(PeakSurchargePercent))
		if err != nil {
			return money.Money{}, err
		}
		total = surcharged
	}
	return total, nil
}

func isPeakMonth(m time.Month) bool {
	switch m {
	case time.June, time.July, time.August:
		return true
	}
	return false
}
