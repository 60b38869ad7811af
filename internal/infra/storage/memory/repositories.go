package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	appoutbox "rentdesk/internal/app/outbox"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	domainrange "rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

type unitRepo struct{ u *Unit }

func (r unitRepo) ByID(ctx context.Context, id domainunit.ID) (*domainunit.Unit, error) {
	if r.u.deletedUnits[id] {
		return nil, domainunit.ErrNotFound
	}
	if staged, ok := r.u.stagedUnits[id]; ok {
		return cloneUnit(staged), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	stored, ok := r.u.store.units[id]
	if !ok {
		return nil, domainunit.ErrNotFound
	}
	return cloneUnit(stored), nil
}

func (r unitRepo) Save(ctx context.Context, u *domainunit.Unit) error {
	if _, ok := r.u.stagedUnits[u.ID]; !ok {
		r.u.baseUnitVersions[u.ID] = u.Version
	}
	u.Version++
	delete(r.u.deletedUnits, u.ID)
	r.u.stagedUnits[u.ID] = cloneUnit(u)
	return nil
}

func (r unitRepo) ListByOwner(ctx context.Context, ownerID domainuser.ID) ([]*domainunit.Unit, error) {
	seen := make(map[domainunit.ID]bool)
	matches := make([]*domainunit.Unit, 0)
	for id, staged := range r.u.stagedUnits {
		seen[id] = true
		if staged.OwnerID == ownerID {
			matches = append(matches, cloneUnit(staged))
		}
	}
	r.u.store.mu.RLock()
	for id, stored := range r.u.store.units {
		if seen[id] || r.u.deletedUnits[id] {
			continue
		}
		if stored.OwnerID == ownerID {
			matches = append(matches, cloneUnit(stored))
		}
	}
	r.u.store.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r unitRepo) Delete(ctx context.Context, id domainunit.ID) error {
	delete(r.u.stagedUnits, id)
	r.u.deletedUnits[id] = true
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	if r.u.deletedBookings[id] {
		return nil, domainbooking.ErrNotFound
	}
	if staged, ok := r.u.stagedBookings[id]; ok {
		return cloneBooking(staged), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	stored, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(stored), nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if _, ok := r.u.stagedBookings[b.ID]; !ok {
		r.u.baseBookingVersions[b.ID] = b.Version
	}
	b.Version++
	delete(r.u.deletedBookings, b.ID)
	r.u.stagedBookings[b.ID] = cloneBooking(b)
	return nil
}

func (r bookingRepo) AnyOverlapping(ctx context.Context, unitID domainunit.ID, padded domainrange.DateRange, statuses []domainbooking.Status, excludeID domainbooking.ID) (bool, error) {
	blocking := func(b *domainbooking.Booking) bool {
		if b.UnitID != unitID {
			return false
		}
		if excludeID != "" && b.ID == excludeID {
			return false
		}
		if !statusIncluded(b.Status, statuses) {
			return false
		}
		return b.Range.Overlaps(padded)
	}
	for _, staged := range r.u.stagedBookings {
		if blocking(staged) {
			return true, nil
		}
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	for id, stored := range r.u.store.bookings {
		if r.u.deletedBookings[id] {
			continue
		}
		if _, ok := r.u.stagedBookings[id]; ok {
			continue
		}
		if blocking(stored) {
			return true, nil
		}
	}
	return false, nil
}

func (r bookingRepo) ListByTenant(ctx context.Context, tenantID domainuser.ID) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(string(tenantID))
	if id == "" {
		return nil, domainbooking.ErrTenantRequired
	}
	return r.list(func(b *domainbooking.Booking) bool { return string(b.TenantID) == id }), nil
}

func (r bookingRepo) ListByOwner(ctx context.Context, ownerID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.OwnerID == ownerID }), nil
}

func (r bookingRepo) list(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	seen := make(map[domainbooking.ID]bool)
	matches := make([]*domainbooking.Booking, 0)
	for id, staged := range r.u.stagedBookings {
		seen[id] = true
		if match(staged) {
			matches = append(matches, cloneBooking(staged))
		}
	}
	r.u.store.mu.RLock()
	for id, stored := range r.u.store.bookings {
		if seen[id] || r.u.deletedBookings[id] {
			continue
		}
		if match(stored) {
			matches = append(matches, cloneBooking(stored))
		}
	}
	r.u.store.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches
}

func (r bookingRepo) DeleteByUnit(ctx context.Context, unitID domainunit.ID) (int64, error) {
	var count int64
	for id, staged := range r.u.stagedBookings {
		if staged.UnitID == unitID {
			delete(r.u.stagedBookings, id)
			r.u.deletedBookings[id] = true
			count++
		}
	}
	r.u.store.mu.RLock()
	for id, stored := range r.u.store.bookings {
		if r.u.deletedBookings[id] || stored.UnitID != unitID {
			continue
		}
		r.u.deletedBookings[id] = true
		count++
	}
	r.u.store.mu.RUnlock()
	return count, nil
}

type invoiceRepo struct{ u *Unit }

func (r invoiceRepo) ByID(ctx context.Context, id domainbilling.InvoiceID) (*domainbilling.Invoice, error) {
	if staged, ok := r.u.stagedInvoices[id]; ok {
		return cloneInvoice(staged), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	stored, ok := r.u.store.invoices[id]
	if !ok {
		return nil, domainbilling.ErrInvoiceNotFound
	}
	return cloneInvoice(stored), nil
}

func (r invoiceRepo) ByBooking(ctx context.Context, bookingID domainbooking.ID) (*domainbilling.Invoice, error) {
	for _, staged := range r.u.stagedInvoices {
		if staged.BookingID == bookingID {
			return cloneInvoice(staged), nil
		}
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	for _, stored := range r.u.store.invoices {
		if stored.BookingID == bookingID {
			return cloneInvoice(stored), nil
		}
	}
	return nil, domainbilling.ErrInvoiceNotFound
}

func (r invoiceRepo) Save(ctx context.Context, inv *domainbilling.Invoice) error {
	if _, ok := r.u.stagedInvoices[inv.ID]; !ok {
		r.u.baseInvoiceVersions[inv.ID] = inv.Version
	}
	inv.Version++
	r.u.stagedInvoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r invoiceRepo) ListDue(ctx context.Context, before time.Time) ([]*domainbilling.Invoice, error) {
	due := func(inv *domainbilling.Invoice) bool {
		return inv.Status == domainbilling.InvoicePending && inv.DueDate.Before(before)
	}
	seen := make(map[domainbilling.InvoiceID]bool)
	matches := make([]*domainbilling.Invoice, 0)
	for id, staged := range r.u.stagedInvoices {
		seen[id] = true
		if due(staged) {
			matches = append(matches, cloneInvoice(staged))
		}
	}
	r.u.store.mu.RLock()
	for id, stored := range r.u.store.invoices {
		if seen[id] {
			continue
		}
		if due(stored) {
			matches = append(matches, cloneInvoice(stored))
		}
	}
	r.u.store.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DueDate.Before(matches[j].DueDate)
	})
	return matches, nil
}

type ledgerRepo struct{ u *Unit }

func (r ledgerRepo) Append(ctx context.Context, entry *domainbilling.LedgerEntry) error {
	r.u.stagedLedger = append(r.u.stagedLedger, cloneEntry(entry))
	return nil
}

func (r ledgerRepo) RecentByUser(ctx context.Context, userID domainuser.ID, limit int) ([]*domainbilling.LedgerEntry, error) {
	matches := make([]*domainbilling.LedgerEntry, 0)
	for _, staged := range r.u.stagedLedger {
		if staged.UserID == userID {
			matches = append(matches, cloneEntry(staged))
		}
	}
	r.u.store.mu.RLock()
	for _, stored := range r.u.store.ledger {
		if stored.UserID == userID {
			matches = append(matches, cloneEntry(stored))
		}
	}
	r.u.store.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r ledgerRepo) SumVerifiedPayouts(ctx context.Context, userID domainuser.ID, currency string) (money.Money, error) {
	total := money.Money{Amount: 0, Currency: currency}
	add := func(e *domainbilling.LedgerEntry) {
		if e.UserID != userID || e.Type != domainbilling.EntryPayout || !e.IsVerified {
			return
		}
		if currency != "" && e.Amount.Currency != currency {
			return
		}
		if total.Currency == "" {
			total.Currency = e.Amount.Currency
		}
		total.Amount += e.Amount.Amount
	}
	for _, staged := range r.u.stagedLedger {
		add(staged)
	}
	r.u.store.mu.RLock()
	for _, stored := range r.u.store.ledger {
		add(stored)
	}
	r.u.store.mu.RUnlock()
	return total, nil
}

type outboxStage struct{ u *Unit }

func (o outboxStage) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.u.stagedOutbox = append(o.u.stagedOutbox, record)
	return nil
}

func (o outboxStage) Flush(ctx context.Context) error { return nil }

func statusIncluded(status domainbooking.Status, allowed []domainbooking.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}
