package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

type deliveryDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	InventoryItem     primitive.ObjectID `bson:"inventoryItem"`
	Barcode           string             `bson:"barcode"`
	CustomerName      string             `bson:"customerName"`
	QuantityDelivered int                `bson:"quantityDelivered"`
	DeliveryDate      time.Time          `bson:"deliveryDate"`
	DeliveredBy       primitive.ObjectID `bson:"deliveredBy"`
	Notes             string             `bson:"notes,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func (d deliveryDocument) model() models.DeliveryRecord {
	return models.DeliveryRecord{
		ID:                d.ID.Hex(),
		VariantID:         d.InventoryItem.Hex(),
		Barcode:           d.Barcode,
		CustomerName:      d.CustomerName,
		QuantityDelivered: d.QuantityDelivered,
		DeliveryDate:      d.DeliveryDate,
		DeliveredBy:       d.DeliveredBy.Hex(),
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// DeliveryRepository stores delivery records in the deliveries collection.
type DeliveryRepository struct {
	coll *mongo.Collection
}

func (r *DeliveryRepository) InsertDelivery(ctx context.Context, d *models.DeliveryRecord) error {
	variantID, err := primitive.ObjectIDFromHex(d.VariantID)
	if err != nil {
		return fmt.Errorf("invalid variant id %q: %w", d.VariantID, err)
	}
	userID, err := primitive.ObjectIDFromHex(d.DeliveredBy)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", d.DeliveredBy, err)
	}

	doc := deliveryDocument{
		ID:                primitive.NewObjectID(),
		InventoryItem:     variantID,
		Barcode:           d.Barcode,
		CustomerName:      d.CustomerName,
		QuantityDelivered: d.QuantityDelivered,
		DeliveryDate:      d.DeliveryDate,
		DeliveredBy:       userID,
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}
	d.ID = doc.ID.Hex()
	return nil
}

func (r *DeliveryRepository) ListDeliveries(ctx context.Context, filter repository.DeliveryFilter) ([]models.DeliveryRecord, error) {
	q := dateFilter(filter.From, filter.To)
	if filter.CustomerName != "" {
		q = append(q, bson.E{Key: "customerName", Value: primitive.Regex{Pattern: regexp.QuoteMeta(filter.CustomerName), Options: "i"}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "deliveryDate", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	var docs []deliveryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode deliveries: %w", err)
	}
	out := make([]models.DeliveryRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *DeliveryRepository) CountDeliveries(ctx context.Context, from, to time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, dateFilter(&from, &to))
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return n, nil
}

func dateFilter(from, to *time.Time) bson.D {
	window := bson.D{}
	if from != nil {
		window = append(window, bson.E{Key: "$gte", Value: *from})
	}
	if to != nil {
		window = append(window, bson.E{Key: "$lt", Value: *to})
	}
	if len(window) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "deliveryDate", Value: window}}
}
