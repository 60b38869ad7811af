package uow

import (
	"context"
	"errors"

	"rentdesk/internal/app/outbox"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	domainunit "rentdesk/internal/domain/unit"
)

// ErrConcurrentUpdate reports that an aggregate changed between this
// transaction's read and its commit. The caller may retry.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork coordinates repositories inside a transaction boundary. Writes
// made through its repositories, including outbox records, become visible
// only on Commit; Rollback discards all of them together.
type UnitOfWork interface {
	Units() domainunit.Repository
	Bookings() domainbooking.Repository
	Invoices() domainbilling.InvoiceRepository
	Ledger() domainbilling.LedgerRepository

	// Outbox stages event records inside the same transaction, so deferred
	// work is only ever scheduled for state that actually committed.
	Outbox() outbox.Outbox

	// LockUnit takes an exclusive lock on the unit row, serializing
	// concurrent booking attempts. Held until Commit or Rollback.
	LockUnit(ctx context.Context, id domainunit.ID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
