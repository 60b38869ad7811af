package memory

import (
	"sync"

	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/events"
	domainunit "rentdesk/internal/domain/unit"
)

// Store holds all aggregate state for the in-memory storage mode. Units of
// work stage their writes and apply them here on Commit, so readers never
// observe a half-applied command.
type Store struct {
	mu       sync.RWMutex
	units    map[domainunit.ID]*domainunit.Unit
	bookings map[domainbooking.ID]*domainbooking.Booking
	invoices map[domainbilling.InvoiceID]*domainbilling.Invoice
	ledger   []*domainbilling.LedgerEntry

	lockMu sync.Mutex
	locks  map[domainunit.ID]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		units:    make(map[domainunit.ID]*domainunit.Unit),
		bookings: make(map[domainbooking.ID]*domainbooking.Booking),
		invoices: make(map[domainbilling.InvoiceID]*domainbilling.Invoice),
		locks:    make(map[domainunit.ID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing writes against one unit, creating it
// on first use. The mutex itself is held across the unit of work, not here.
func (s *Store) lockFor(id domainunit.ID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	return mu
}

func cloneUnit(u *domainunit.Unit) *domainunit.Unit {
	if u == nil {
		return nil
	}
	c := *u
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneInvoice(inv *domainbilling.Invoice) *domainbilling.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneEntry(e *domainbilling.LedgerEntry) *domainbilling.LedgerEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
