package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	domainunit "rentdesk/internal/domain/unit"
)

// ErrFactoryMisconfigured indicates missing wiring.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory builds staged in-memory units of work over a shared Store.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:               f.Store,
		outboxStore:         f.Outbox,
		stagedUnits:         make(map[domainunit.ID]*domainunit.Unit),
		deletedUnits:        make(map[domainunit.ID]bool),
		stagedBookings:      make(map[domainbooking.ID]*domainbooking.Booking),
		deletedBookings:     make(map[domainbooking.ID]bool),
		stagedInvoices:      make(map[domainbilling.InvoiceID]*domainbilling.Invoice),
		held:                make(map[domainunit.ID]*sync.Mutex),
		baseUnitVersions:    make(map[domainunit.ID]int64),
		baseBookingVersions: make(map[domainbooking.ID]int64),
		baseInvoiceVersions: make(map[domainbilling.InvoiceID]int64),
	}, nil
}

// Unit stages every write, including outbox records, and applies them to the
// shared store on Commit. Rollback discards the lot, so an aborted command
// leaves no booking row and no orphaned event record behind.
type Unit struct {
	store       *Store
	outboxStore *Outbox
	done        bool

	stagedUnits     map[domainunit.ID]*domainunit.Unit
	deletedUnits    map[domainunit.ID]bool
	stagedBookings  map[domainbooking.ID]*domainbooking.Booking
	deletedBookings map[domainbooking.ID]bool
	stagedInvoices  map[domainbilling.InvoiceID]*domainbilling.Invoice
	stagedLedger    []*domainbilling.LedgerEntry
	stagedOutbox    []appoutbox.EventRecord

	// Version of each saved aggregate as it was read, checked against the
	// store on Commit the way the mongo repositories filter on version.
	baseUnitVersions    map[domainunit.ID]int64
	baseBookingVersions map[domainbooking.ID]int64
	baseInvoiceVersions map[domainbilling.InvoiceID]int64

	held map[domainunit.ID]*sync.Mutex
}

func (u *Unit) Units() domainunit.Repository              { return unitRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository        { return bookingRepo{u} }
func (u *Unit) Invoices() domainbilling.InvoiceRepository { return invoiceRepo{u} }
func (u *Unit) Ledger() domainbilling.LedgerRepository    { return ledgerRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                  { return outboxStage{u} }

// LockUnit blocks until this unit of work holds the per-unit mutex. The lock
// is released on Commit or Rollback, which is what serializes two racing
// booking attempts against the same unit.
func (u *Unit) LockUnit(ctx context.Context, id domainunit.ID) error {
	if _, ok := u.held[id]; ok {
		return nil
	}
	mu := u.store.lockFor(id)
	mu.Lock()
	u.held[id] = mu
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.store.mu.Lock()
	if err := u.checkVersions(); err != nil {
		u.store.mu.Unlock()
		u.release()
		return err
	}
	for id := range u.deletedBookings {
		delete(u.store.bookings, id)
	}
	for id := range u.deletedUnits {
		delete(u.store.units, id)
	}
	for id, su := range u.stagedUnits {
		u.store.units[id] = su
	}
	for id, sb := range u.stagedBookings {
		u.store.bookings[id] = sb
	}
	for id, inv := range u.stagedInvoices {
		u.store.invoices[id] = inv
	}
	u.store.ledger = append(u.store.ledger, u.stagedLedger...)
	u.store.mu.Unlock()

	if u.outboxStore != nil && len(u.stagedOutbox) > 0 {
		u.outboxStore.insert(u.stagedOutbox...)
	}
	u.release()
	return nil
}

// checkVersions rejects the commit when any aggregate this transaction wrote
// has a different version in the store than it had when read. Nothing gets
// applied on failure, so a losing PayInvoice leaves no second ledger row.
// Caller holds store.mu.
func (u *Unit) checkVersions() error {
	for id, base := range u.baseUnitVersions {
		var current int64
		if stored, ok := u.store.units[id]; ok {
			current = stored.Version
		}
		if current != base {
			return uow.ErrConcurrentUpdate
		}
	}
	for id, base := range u.baseBookingVersions {
		var current int64
		if stored, ok := u.store.bookings[id]; ok {
			current = stored.Version
		}
		if current != base {
			return uow.ErrConcurrentUpdate
		}
	}
	for id, base := range u.baseInvoiceVersions {
		var current int64
		if stored, ok := u.store.invoices[id]; ok {
			current = stored.Version
		}
		if current != base {
			return uow.ErrConcurrentUpdate
		}
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.release()
	return nil
}

func (u *Unit) release() {
	u.done = true
	for _, mu := range u.held {
		mu.Unlock()
	}
	u.held = map[domainunit.ID]*sync.Mutex{}
}
