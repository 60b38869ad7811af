package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "rentdesk/internal/app/outbox"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	domainunit "rentdesk/internal/domain/unit"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	UnitsRepo    domainunit.Repository
	BookingsRepo domainbooking.Repository
	InvoicesRepo domainbilling.InvoiceRepository
	LedgerRepo   domainbilling.LedgerRepository
	OutboxStore  appoutbox.Outbox
}

// Begin starts a MongoDB session transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		units:    f.UnitsRepo,
		bookings: f.BookingsRepo,
		invoices: f.InvoicesRepo,
		ledger:   f.LedgerRepo,
		outbox:   f.OutboxStore,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	units    domainunit.Repository
	bookings domainbooking.Repository
	invoices domainbilling.InvoiceRepository
	ledger   domainbilling.LedgerRepository
	outbox   appoutbox.Outbox
}

func (u *Unit) Units() domainunit.Repository              { return u.units }
func (u *Unit) Bookings() domainbooking.Repository        { return u.bookings }
func (u *Unit) Invoices() domainbilling.InvoiceRepository { return u.invoices }
func (u *Unit) Ledger() domainbilling.LedgerRepository    { return u.ledger }
func (u *Unit) Outbox() appoutbox.Outbox                  { return u.outbox }

// LockUnit bumps a lock counter on the unit document inside the session
// transaction. The write takes the document lock, so a second transaction
// touching the same unit blocks here until this one commits or aborts.
func (u *Unit) LockUnit(ctx context.Context, id domainunit.ID) error {
	col := u.db.Collection(unitsCollection)
	res, err := col.UpdateByID(ctx, string(id), bson.M{"$inc": bson.M{"lock_version": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainunit.ErrNotFound
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes the Mongo session available to downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
