package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository stores events, flights and hotels in one collection per
// item type and resolves typed references for the booking workflow.
type CatalogRepository struct {
	colls  map[domain.ItemType]*mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		colls: map[domain.ItemType]*mongo.Collection{
			domain.ItemTypeEvent:  db.Collection("events"),
			domain.ItemTypeFlight: db.Collection("flights"),
			domain.ItemTypeHotel:  db.Collection("hotels"),
		},
		logger: logger,
	}
}

type EventDoc struct {
	ID          uuid.UUID   `bson:"_id"`
	Title       string      `bson:"title"`
	Description string      `bson:"description,omitempty"`
	Location    string      `bson:"location"`
	Category    string      `bson:"category,omitempty"`
	Date        time.Time   `bson:"date"`
	Price       interface{} `bson:"price"`
	CreatedAt   time.Time   `bson:"created_at"`
}

type FlightDoc struct {
	ID            uuid.UUID   `bson:"_id"`
	Airline       string      `bson:"airline"`
	FlightNumber  string      `bson:"flight_number,omitempty"`
	From          string      `bson:"from"`
	To            string      `bson:"to"`
	DepartureTime time.Time   `bson:"departure_time"`
	ArrivalTime   time.Time   `bson:"arrival_time,omitempty"`
	Charges       interface{} `bson:"charges"`
	Description   string      `bson:"description,omitempty"`
	CreatedAt     time.Time   `bson:"created_at"`
}

type HotelDoc struct {
	ID          uuid.UUID   `bson:"_id"`
	Name        string      `bson:"name"`
	Location    string      `bson:"location"`
	Charges     interface{} `bson:"charges"`
	Description string      `bson:"description,omitempty"`
	CreatedAt   time.Time   `bson:"created_at"`
}

func (c *CatalogRepository) coll(t domain.ItemType) (*mongo.Collection, error) {
	coll, ok := c.colls[t]
	if !ok {
		return nil, domain.InvalidRequestf("invalid booking type %q", t)
	}
	return coll, nil
}

// Resolve loads the item a reference points at.
func (c *CatalogRepository) Resolve(ctx context.Context, ref domain.ItemRef) (domain.CatalogItem, error) {
	coll, err := c.coll(ref.Type)
	if err != nil {
		return nil, err
	}
	res := coll.FindOne(ctx, bson.M{"_id": ref.ID})
	item, err := decodeItem(ref.Type, res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFoundf("%s not found", ref.Type)
	}
	if err != nil {
		c.logger.Error("failed to resolve catalog item", err)
		return nil, err
	}
	return item, nil
}

// Create stores item with its price normalized.
func (c *CatalogRepository) Create(ctx context.Context, item domain.CatalogItem) error {
	if err := domain.NormalizeCatalogItem(item); err != nil {
		return err
	}
	doc, err := encodeItem(item, time.Now())
	if err != nil {
		return err
	}
	coll, err := c.coll(item.Ref().Type)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		c.logger.Error("failed to create catalog item", err)
		return err
	}
	return nil
}

// Update replaces an existing item, keeping its creation time.
func (c *CatalogRepository) Update(ctx context.Context, item domain.CatalogItem) error {
	if err := domain.NormalizeCatalogItem(item); err != nil {
		return err
	}
	ref := item.Ref()
	coll, err := c.coll(ref.Type)
	if err != nil {
		return err
	}

	var existing struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	err = coll.FindOne(ctx, bson.M{"_id": ref.ID}, options.FindOne().SetProjection(bson.M{"created_at": 1})).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NotFoundf("%s not found", ref.Type)
	}
	if err != nil {
		c.logger.Error("failed to load catalog item", err)
		return err
	}

	doc, err := encodeItem(item, existing.CreatedAt)
	if err != nil {
		return err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": ref.ID}, doc)
	if err != nil {
		c.logger.Error("failed to update catalog item", err)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.NotFoundf("%s not found", ref.Type)
	}
	return nil
}

func (c *CatalogRepository) List(ctx context.Context, t domain.ItemType) ([]domain.CatalogItem, error) {
	coll, err := c.coll(t)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []domain.CatalogItem{}
	for cur.Next(ctx) {
		item, err := decodeItem(t, cur)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, cur.Err()
}

func (c *CatalogRepository) Delete(ctx context.Context, ref domain.ItemRef) error {
	coll, err := c.coll(ref.Type)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": ref.ID})
	if err != nil {
		c.logger.Error("failed to delete catalog item", err)
		return err
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundf("%s not found", ref.Type)
	}
	return nil
}

type decoder interface {
	Decode(v interface{}) error
}

func decodeItem(t domain.ItemType, d decoder) (domain.CatalogItem, error) {
	switch t {
	case domain.ItemTypeEvent:
		var doc EventDoc
		if err := d.Decode(&doc); err != nil {
			return nil, err
		}
		return &domain.Event{
			ID:          doc.ID,
			Title:       doc.Title,
			Description: doc.Description,
			Location:    doc.Location,
			Category:    doc.Category,
			Date:        doc.Date,
			Price:       rawPrice(doc.Price),
		}, nil
	case domain.ItemTypeFlight:
		var doc FlightDoc
		if err := d.Decode(&doc); err != nil {
			return nil, err
		}
		return &domain.Flight{
			ID:            doc.ID,
			Airline:       doc.Airline,
			FlightNumber:  doc.FlightNumber,
			From:          doc.From,
			To:            doc.To,
			DepartureTime: doc.DepartureTime,
			ArrivalTime:   doc.ArrivalTime,
			Charges:       rawPrice(doc.Charges),
			Description:   doc.Description,
		}, nil
	case domain.ItemTypeHotel:
		var doc HotelDoc
		if err := d.Decode(&doc); err != nil {
			return nil, err
		}
		return &domain.Hotel{
			ID:          doc.ID,
			Name:        doc.Name,
			Location:    doc.Location,
			Charges:     rawPrice(doc.Charges),
			Description: doc.Description,
		}, nil
	}
	return nil, domain.InvalidRequestf("invalid booking type %q", t)
}

func encodeItem(item domain.CatalogItem, createdAt time.Time) (interface{}, error) {
	price, err := bsonPrice(item.RawPrice())
	if err != nil {
		return nil, err
	}
	switch v := item.(type) {
	case *domain.Event:
		return EventDoc{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Location:    v.Location,
			Category:    v.Category,
			Date:        v.Date,
			Price:       price,
			CreatedAt:   createdAt,
		}, nil
	case *domain.Flight:
		return FlightDoc{
			ID:            v.ID,
			Airline:       v.Airline,
			FlightNumber:  v.FlightNumber,
			From:          v.From,
			To:            v.To,
			DepartureTime: v.DepartureTime,
			ArrivalTime:   v.ArrivalTime,
			Charges:       price,
			Description:   v.Description,
			CreatedAt:     createdAt,
		}, nil
	case *domain.Hotel:
		return HotelDoc{
			ID:          v.ID,
			Name:        v.Name,
			Location:    v.Location,
			Charges:     price,
			Description: v.Description,
			CreatedAt:   createdAt,
		}, nil
	}
	return nil, errors.Newf("unsupported catalog item %T", item)
}

// rawPrice unwraps BSON-specific numeric types so the amount normalizer sees
// plain Go values. Decimal128 may print in exponent form ("1.25E+3"), so it is
// parsed as a number rather than handed over as text.
func rawPrice(v interface{}) interface{} {
	if d, ok := v.(primitive.Decimal128); ok {
		amount, err := decimal.NewFromString(d.String())
		if err != nil {
			// NaN and Infinity; the normalizer rejects the text.
			return d.String()
		}
		return amount
	}
	return v
}

// bsonPrice stores normalized amounts as Decimal128.
func bsonPrice(v interface{}) (interface{}, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return v, nil
	}
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return nil, errors.Wrapf(err, "encode price %s", d.String())
	}
	return dec, nil
}
