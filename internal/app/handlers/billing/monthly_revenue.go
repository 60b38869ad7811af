package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rentdesk/internal/app/handlers/support"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/money"
	domainuser "rentdesk/internal/domain/user"
)

const monthlyRevenueKey = "billing.monthly_revenue"

type MonthlyRevenueQuery struct {
	ActorID   string
	ActorRole string
}

func (q MonthlyRevenueQuery) Key() string { return monthlyRevenueKey }

type MonthlyRevenueBucket struct {
	Label   string `json:"label"`
	Revenue string `json:"revenue"`
}

type MonthlyRevenueResult struct {
	Months []MonthlyRevenueBucket `json:"months"`
}

// MonthlyRevenueHandler aggregates a landlord's revenue: confirmed bookings
// on their units whose invoice is paid, bucketed by the month the stay
// starts.
type MonthlyRevenueHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MonthlyRevenueHandler) Handle(ctx context.Context, q MonthlyRevenueQuery) (*MonthlyRevenueResult, error) {
	if domainuser.Role(q.ActorRole) != domainuser.RoleLandlord {
		return nil, domainbilling.ErrForbidden
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	bookings, err := unit.Bookings().ListByOwner(ctx, domainuser.ID(q.ActorID))
	if err != nil {
		return nil, err
	}

	type bucketKey struct {
		year  int
		month time.Month
	}
	totals := make(map[bucketKey]int64)
	currency := ""
	for _, b := range bookings {
		if b.Status != domainbooking.StatusConfirmed {
			continue
		}
		inv, err := unit.Invoices().ByBooking(ctx, b.ID)
		if errors.Is(err, domainbilling.ErrInvoiceNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if inv.Status != domainbilling.InvoicePaid {
			continue
		}
		key := bucketKey{year: b.Range.Start.Year(), month: b.Range.Start.Month()}
		totals[key] += inv.Amount.Amount
		currency = inv.Amount.Currency
	}

	keys := make([]bucketKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	months := make([]MonthlyRevenueBucket, 0, len(keys))
	for _, k := range keys {
		amount := money.Money{Amount: totals[k], Currency: currency}
		months = append(months, MonthlyRevenueBucket{
			Label:   fmt.Sprintf("%s %d", k.month.String()[:3], k.year),
			Revenue: amount.String(),
		})
	}
	return &MonthlyRevenueResult{Months: months}, nil
}

var _ queries.Handler[MonthlyRevenueQuery, *MonthlyRevenueResult] = (*MonthlyRevenueHandler)(nil)
