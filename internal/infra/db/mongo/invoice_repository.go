package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	"rentdesk/internal/domain/shared/money"
	domainuser "rentdesk/internal/domain/user"
)

type InvoiceRepository struct {
	col *mongo.Collection
}

// NewInvoiceRepository enforces one invoice per booking with a unique index,
// so even two racing generators cannot both insert.
func NewInvoiceRepository(db *mongo.Database) *InvoiceRepository {
	col := db.Collection("agg_invoice")
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	due := mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), unique)
	_, _ = col.Indexes().CreateOne(context.Background(), due)
	return &InvoiceRepository{col: col}
}

func (r *InvoiceRepository) ByID(ctx context.Context, id domainbilling.InvoiceID) (*domainbilling.Invoice, error) {
	var doc invoiceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbilling.ErrInvoiceNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *InvoiceRepository) ByBooking(ctx context.Context, bookingID domainbooking.ID) (*domainbilling.Invoice, error) {
	var doc invoiceDocument
	if err := r.col.FindOne(ctx, bson.M{"booking_id": string(bookingID)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbilling.ErrInvoiceNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *InvoiceRepository) Save(ctx context.Context, inv *domainbilling.Invoice) error {
	doc := newInvoiceDocument(inv)
	filter := bson.M{"_id": doc.ID, "version": inv.Version}
	doc.Version = inv.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	inv.Version = doc.Version
	return nil
}

func (r *InvoiceRepository) ListDue(ctx context.Context, before time.Time) ([]*domainbilling.Invoice, error) {
	filter := bson.M{
		"status":   string(domainbilling.InvoicePending),
		"due_date": bson.M{"$lt": before.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var invoices []*domainbilling.Invoice
	for cur.Next(ctx) {
		var doc invoiceDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		invoices = append(invoices, doc.toAggregate())
	}
	return invoices, cur.Err()
}

type invoiceDocument struct {
	ID           string `bson:"_id"`
	BookingID    string `bson:"booking_id"`
	TenantID     string `bson:"tenant_id"`
	OwnerID      string `bson:"owner_id"`
	AmountCents  int64  `bson:"amount_cents"`
	Currency     string `bson:"currency"`
	IssueDate    int64  `bson:"issue_date"`
	DueDate      int64  `bson:"due_date"`
	Status       string `bson:"status"`
	PayoutStatus string `bson:"payout_status"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
	Version      int64  `bson:"version"`
}

func newInvoiceDocument(inv *domainbilling.Invoice) invoiceDocument {
	return invoiceDocument{
		ID:           string(inv.ID),
		BookingID:    string(inv.BookingID),
		TenantID:     string(inv.TenantID),
		OwnerID:      string(inv.OwnerID),
		AmountCents:  inv.Amount.Amount,
		Currency:     inv.Amount.Currency,
		IssueDate:    inv.IssueDate.UnixMilli(),
		DueDate:      inv.DueDate.UnixMilli(),
		Status:       string(inv.Status),
		PayoutStatus: string(inv.PayoutStatus),
		CreatedAt:    inv.CreatedAt.UnixMilli(),
		UpdatedAt:    inv.UpdatedAt.UnixMilli(),
		Version:      inv.Version,
	}
}

func (d invoiceDocument) toAggregate() *domainbilling.Invoice {
	return &domainbilling.Invoice{
		ID:           domainbilling.InvoiceID(d.ID),
		BookingID:    domainbooking.ID(d.BookingID),
		TenantID:     domainuser.ID(d.TenantID),
		OwnerID:      domainuser.ID(d.OwnerID),
		Amount:       money.Money{Amount: d.AmountCents, Currency: d.Currency},
		IssueDate:    timestampToTime(d.IssueDate),
		DueDate:      timestampToTime(d.DueDate),
		Status:       domainbilling.InvoiceStatus(d.Status),
		PayoutStatus: domainbilling.PayoutStatus(d.PayoutStatus),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
}
