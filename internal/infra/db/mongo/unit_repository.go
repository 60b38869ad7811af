package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentdesk/internal/app/uow"
	"rentdesk/internal/domain/shared/money"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

const unitsCollection = "agg_unit"

// ErrConcurrentUpdate is returned when the version filter matches no row.
// Aliased to the port-level error so callers need not know the backend.
var ErrConcurrentUpdate = uow.ErrConcurrentUpdate

type UnitRepository struct {
	col *mongo.Collection
}

func NewUnitRepository(db *mongo.Database) *UnitRepository {
	col := db.Collection(unitsCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &UnitRepository{col: col}
}

func (r *UnitRepository) ByID(ctx context.Context, id domainunit.ID) (*domainunit.Unit, error) {
	var doc unitDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainunit.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UnitRepository) Save(ctx context.Context, u *domainunit.Unit) error {
	doc := newUnitDocument(u)
	filter := bson.M{"_id": doc.ID, "version": u.Version}
	doc.Version = u.Version + 1
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
	u.Version = doc.Version
	return nil
}

func (r *UnitRepository) ListByOwner(ctx context.Context, ownerID domainuser.ID) ([]*domainunit.Unit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"owner_id": string(ownerID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var units []*domainunit.Unit
	for cur.Next(ctx) {
		var doc unitDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		units = append(units, doc.toAggregate())
	}
	return units, cur.Err()
}

func (r *UnitRepository) Delete(ctx context.Context, id domainunit.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainunit.ErrNotFound
	}
	return nil
}

type unitDocument struct {
	ID                  string `bson:"_id"`
	PropertyID          string `bson:"property_id"`
	OwnerID             string `bson:"owner_id"`
	Number              string `bson:"number"`
	Title               string `bson:"title"`
	Description         string `bson:"description"`
	BasePriceCents      int64  `bson:"base_price_cents"`
	Currency            string `bson:"currency"`
	TurnoverBufferHours int    `bson:"turnover_buffer_hours"`
	Active              bool   `bson:"active"`
	CreatedAt           int64  `bson:"created_at"`
	UpdatedAt           int64  `bson:"updated_at"`
	Version             int64  `bson:"version"`
}

func newUnitDocument(u *domainunit.Unit) unitDocument {
	return unitDocument{
		ID:                  string(u.ID),
		PropertyID:          string(u.PropertyID),
		OwnerID:             string(u.OwnerID),
		Number:              u.Number,
		Title:               u.Title,
		Description:         u.Description,
		BasePriceCents:      u.BasePrice.Amount,
		Currency:            u.BasePrice.Currency,
		TurnoverBufferHours: u.TurnoverBufferHours,
		Active:              u.Active,
		CreatedAt:           u.CreatedAt.UnixMilli(),
		UpdatedAt:           u.UpdatedAt.UnixMilli(),
		Version:             u.Version,
	}
}

func (d unitDocument) toAggregate() *domainunit.Unit {
	return &domainunit.Unit{
		ID:                  domainunit.ID(d.ID),
		PropertyID:          domainunit.PropertyID(d.PropertyID),
		OwnerID:             domainuser.ID(d.OwnerID),
		Number:              d.Number,
		Title:               d.Title,
		Description:         d.Description,
		BasePrice:           money.Money{Amount: d.BasePriceCents, Currency: d.Currency},
		TurnoverBufferHours: d.TurnoverBufferHours,
		Active:              d.Active,
		CreatedAt:           timestampToTime(d.CreatedAt),
		UpdatedAt:           timestampToTime(d.UpdatedAt),
		Version:             d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
