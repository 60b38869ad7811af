package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentdesk/internal/domain/booking"
	domainrange "rentdesk/internal/domain/shared/daterange"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	idx := mongo.IndexModel{Keys: bson.D{
		{Key: "unit_id", Value: 1},
		{Key: "status", Value: 1},
		{Key: "range.start", Value: 1},
	}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
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
	b.Version = doc.Version
	return nil
}

// AnyOverlapping matches half-open ranges: an existing booking blocks when
// its start is before the padded end and its end after the padded start.
func (r *BookingRepository) AnyOverlapping(ctx context.Context, unitID domainunit.ID, padded domainrange.DateRange, statuses []domainbooking.Status, excludeID domainbooking.ID) (bool, error) {
	states := make([]string, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, string(s))
	}
	filter := bson.M{
		"unit_id":     string(unitID),
		"status":      bson.M{"$in": states},
		"range.start": bson.M{"$lt": padded.End.UnixMilli()},
		"range.end":   bson.M{"$gt": padded.Start.UnixMilli()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	count, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BookingRepository) ListByTenant(ctx context.Context, tenantID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"tenant_id": string(tenantID)})
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"owner_id": string(ownerID)})
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var bookings []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		bookings = append(bookings, doc.toAggregate())
	}
	return bookings, cur.Err()
}

func (r *BookingRepository) DeleteByUnit(ctx context.Context, unitID domainunit.ID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"unit_id": string(unitID)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type bookingDocument struct {
	ID         string        `bson:"_id"`
	UnitID     string        `bson:"unit_id"`
	OwnerID    string        `bson:"owner_id"`
	TenantID   string        `bson:"tenant_id"`
	Range      rangeDocument `bson:"range"`
	Status     string        `bson:"status"`
	TotalCents int64         `bson:"total_cents"`
	Currency   string        `bson:"currency"`
	CreatedAt  int64         `bson:"created_at"`
	UpdatedAt  int64         `bson:"updated_at"`
	Version    int64         `bson:"version"`
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		UnitID:     string(b.UnitID),
		OwnerID:    string(b.OwnerID),
		TenantID:   string(b.TenantID),
		Range:      rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		Status:     string(b.Status),
		TotalCents: b.TotalPrice.Amount,
		Currency:   b.TotalPrice.Currency,
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:         domainbooking.ID(d.ID),
		UnitID:     domainunit.ID(d.UnitID),
		OwnerID:    domainuser.ID(d.OwnerID),
		TenantID:   domainuser.ID(d.TenantID),
		Range:      domainrange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Status:     domainbooking.Status(d.Status),
		TotalPrice: money.Money{Amount: d.TotalCents, Currency: d.Currency},
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}
