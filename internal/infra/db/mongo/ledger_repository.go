package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbilling "rentdesk/internal/domain/billing"
	"rentdesk/internal/domain/shared/money"
	domainuser "rentdesk/internal/domain/user"
)

// LedgerRepository only ever inserts. There is no update or delete path,
// mirroring the append-only contract of the domain port.
type LedgerRepository struct {
	col *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	col := db.Collection("ledger_entries")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &LedgerRepository{col: col}
}

func (r *LedgerRepository) Append(ctx context.Context, entry *domainbilling.LedgerEntry) error {
	_, err := r.col.InsertOne(ctx, newEntryDocument(entry))
	return err
}

func (r *LedgerRepository) RecentByUser(ctx context.Context, userID domainuser.ID, limit int) ([]*domainbilling.LedgerEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"user_id": string(userID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var entries []*domainbilling.LedgerEntry
	for cur.Next(ctx) {
		var doc entryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		entries = append(entries, doc.toEntry())
	}
	return entries, cur.Err()
}

func (r *LedgerRepository) SumVerifiedPayouts(ctx context.Context, userID domainuser.ID, currency string) (money.Money, error) {
	match := bson.M{
		"user_id":     string(userID),
		"type":        string(domainbilling.EntryPayout),
		"is_verified": true,
	}
	if currency != "" {
		match["currency"] = currency
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$currency", "total": bson.M{"$sum": "$amount_cents"}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return money.Money{}, err
	}
	defer cur.Close(ctx)
	total := money.Money{Amount: 0, Currency: currency}
	for cur.Next(ctx) {
		var row struct {
			Currency string `bson:"_id"`
			Total    int64  `bson:"total"`
		}
		if err := cur.Decode(&row); err != nil {
			return money.Money{}, err
		}
		total.Amount += row.Total
		if total.Currency == "" {
			total.Currency = row.Currency
		}
	}
	return total, cur.Err()
}

type entryDocument struct {
	ID          string `bson:"_id"`
	InvoiceID   string `bson:"invoice_id,omitempty"`
	UserID      string `bson:"user_id"`
	AmountCents int64  `bson:"amount_cents"`
	Currency    string `bson:"currency"`
	Type        string `bson:"type"`
	Description string `bson:"description"`
	IsVerified  bool   `bson:"is_verified"`
	CreatedAt   int64  `bson:"created_at"`
}

func newEntryDocument(e *domainbilling.LedgerEntry) entryDocument {
	return entryDocument{
		ID:          string(e.ID),
		InvoiceID:   string(e.InvoiceID),
		UserID:      string(e.UserID),
		AmountCents: e.Amount.Amount,
		Currency:    e.Amount.Currency,
		Type:        string(e.Type),
		Description: e.Description,
		IsVerified:  e.IsVerified,
		CreatedAt:   e.CreatedAt.UnixMilli(),
	}
}

func (d entryDocument) toEntry() *domainbilling.LedgerEntry {
	return &domainbilling.LedgerEntry{
		ID:          domainbilling.EntryID(d.ID),
		InvoiceID:   domainbilling.InvoiceID(d.InvoiceID),
		UserID:      domainuser.ID(d.UserID),
		Amount:      money.Money{Amount: d.AmountCents, Currency: d.Currency},
		Type:        domainbilling.EntryType(d.Type),
		Description: d.Description,
		IsVerified:  d.IsVerified,
		CreatedAt:   timestampToTime(d.CreatedAt),
	}
}
