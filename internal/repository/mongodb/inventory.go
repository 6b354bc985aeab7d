package mongodb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

type inventoryDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ItemName    string             `bson:"itemName"`
	Category    string             `bson:"category"`
	Size        string             `bson:"size"`
	Color       string             `bson:"color"`
	Barcode     string             `bson:"barcode"`
	Quantity    int                `bson:"quantity"`
	Price       priceValue         `bson:"price"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d inventoryDocument) model() models.InventoryVariant {
	return models.InventoryVariant{
		ID:          d.ID.Hex(),
		ItemName:    d.ItemName,
		Category:    models.Category(d.Category),
		Size:        d.Size,
		Color:       d.Color,
		Barcode:     d.Barcode,
		Quantity:    d.Quantity,
		UnitPrice:   d.Price.Decimal,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func keyFilter(key models.VariantKey) bson.D {
	return bson.D{
		{Key: "itemName", Value: key.ItemName},
		{Key: "category", Value: string(key.Category)},
		{Key: "size", Value: key.Size},
		{Key: "color", Value: key.Color},
	}
}

func inventoryQuery(filter repository.InventoryFilter) bson.D {
	q := bson.D{}
	if filter.Category != "" {
		q = append(q, bson.E{Key: "category", Value: string(filter.Category)})
	}
	if filter.MaxQuantity != nil {
		q = append(q, bson.E{Key: "quantity", Value: bson.D{{Key: "$lte", Value: *filter.MaxQuantity}}})
	}
	if filter.SearchText != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(filter.SearchText), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "itemName", Value: rx}},
			bson.D{{Key: "barcode", Value: rx}},
		}})
	}
	return q
}

// InventoryRepository stores variants in the inventories collection.
type InventoryRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func (r *InventoryRepository) InsertVariant(ctx context.Context, v *models.InventoryVariant) error {
	doc := inventoryDocument{
		ID:          primitive.NewObjectID(),
		ItemName:    v.ItemName,
		Category:    string(v.Category),
		Size:        v.Size,
		Color:       v.Color,
		Barcode:     v.Barcode,
		Quantity:    v.Quantity,
		Price:       priceValue{v.UnitPrice},
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mapped := duplicateKeyError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert variant: %w", err)
	}
	v.ID = doc.ID.Hex()
	return nil
}

func (r *InventoryRepository) IncrementQuantity(ctx context.Context, key models.VariantKey, delta int, now time.Time) (*models.InventoryVariant, error) {
	filter := keyFilter(key)
	if delta > 0 {
		filter = append(filter, bson.E{Key: "quantity", Value: bson.D{{Key: "$lte", Value: math.MaxInt64 - int64(delta)}}})
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "quantity", Value: delta}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
	}
	v, err := r.findOneAndUpdate(ctx, filter, update)
	if !errors.Is(err, repository.ErrNoDocument) || delta <= 0 {
		return v, err
	}

	// The guarded filter also misses when the variant exists but cannot take the delta.
	if _, lookupErr := r.findOne(ctx, keyFilter(key)); lookupErr == nil {
		return nil, repository.ErrQuantityOverflow
	}
	return nil, err
}

func (r *InventoryRepository) ReplaceVariant(ctx context.Context, id string, upd models.VariantUpdate, now time.Time) (*models.InventoryVariant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	price, err := toDecimal128(upd.UnitPrice)
	if err != nil {
		return nil, err
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "itemName", Value: upd.ItemName},
		{Key: "category", Value: string(upd.Category)},
		{Key: "size", Value: upd.Size},
		{Key: "color", Value: upd.Color},
		{Key: "quantity", Value: upd.Quantity},
		{Key: "price", Value: price},
		{Key: "description", Value: upd.Description},
		{Key: "updatedAt", Value: now},
	}}}
	return r.findOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update)
}

func (r *InventoryRepository) SetQuantity(ctx context.Context, id string, quantity int, now time.Time) (*models.InventoryVariant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "quantity", Value: quantity},
		{Key: "updatedAt", Value: now},
	}}}
	return r.findOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update)
}

func (r *InventoryRepository) findOneAndUpdate(ctx context.Context, filter, update bson.D) (*models.InventoryVariant, error) {
	var doc inventoryDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if notFound(err) {
			return nil, repository.ErrNoDocument
		}
		if mapped := duplicateKeyError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update variant: %w", err)
	}
	v := doc.model()
	return &v, nil
}

func (r *InventoryRepository) DeleteVariant(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNoDocument
	}
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNoDocument
	}
	return nil
}

func (r *InventoryRepository) FindVariantByID(ctx context.Context, id string) (*models.InventoryVariant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *InventoryRepository) FindVariantByBarcode(ctx context.Context, barcode string) (*models.InventoryVariant, error) {
	return r.findOne(ctx, bson.D{{Key: "barcode", Value: barcode}})
}

func (r *InventoryRepository) findOne(ctx context.Context, filter bson.D) (*models.InventoryVariant, error) {
	var doc inventoryDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if notFound(err) {
			return nil, repository.ErrNoDocument
		}
		return nil, fmt.Errorf("failed to find variant: %w", err)
	}
	v := doc.model()
	return &v, nil
}

func (r *InventoryRepository) FindVariantsByIDs(ctx context.Context, ids []string) (map[string]models.InventoryVariant, error) {
	oids := objectIDs(ids)
	out := make(map[string]models.InventoryVariant, len(oids))
	if len(oids) == 0 {
		return out, nil
	}
	docs, err := r.find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}}, nil)
	if err != nil {
		return nil, err
	}
	for _, v := range docs {
		out[v.ID] = v
	}
	return out, nil
}

func (r *InventoryRepository) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "barcode", Value: barcode}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check barcode: %w", err)
	}
	return n > 0, nil
}

func (r *InventoryRepository) ListVariants(ctx context.Context, filter repository.InventoryFilter, skip, limit int) ([]models.InventoryVariant, int64, error) {
	q := inventoryQuery(filter)
	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count variants: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	out, err := r.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *InventoryRepository) ListVariantsSorted(ctx context.Context, filter repository.InventoryFilter) ([]models.InventoryVariant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "itemName", Value: 1}})
	return r.find(ctx, inventoryQuery(filter), opts)
}

func (r *InventoryRepository) ListLowStock(ctx context.Context, threshold, limit int) ([]models.InventoryVariant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "quantity", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, lowStockFilter(threshold), opts)
}

func (r *InventoryRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]models.InventoryVariant, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	var docs []inventoryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode variants: %w", err)
	}
	out := make([]models.InventoryVariant, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *InventoryRepository) CountVariants(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count variants: %w", err)
	}
	return n, nil
}

func (r *InventoryRepository) SumQuantity(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *InventoryRepository) CountByQuantityBand(ctx context.Context, threshold int) (int64, int64, error) {
	out, err := r.coll.CountDocuments(ctx, bson.D{{Key: "quantity", Value: 0}})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count out of stock: %w", err)
	}
	low, err := r.coll.CountDocuments(ctx, lowStockFilter(threshold))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count low stock: %w", err)
	}
	return out, low, nil
}

func (r *InventoryRepository) SumByCategory(ctx context.Context) ([]models.CategoryStock, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "totalQuantity", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
			{Key: "itemCount", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalQuantity", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	var rows []struct {
		Category      string `bson:"_id"`
		TotalQuantity int64  `bson:"totalQuantity"`
		ItemCount     int64  `bson:"itemCount"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}
	out := make([]models.CategoryStock, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CategoryStock{
			Category:      models.Category(row.Category),
			TotalQuantity: row.TotalQuantity,
			ItemCount:     row.ItemCount,
		})
	}
	return out, nil
}

func (r *InventoryRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Warn("inventory aggregation failed", zap.Error(err))
		return fmt.Errorf("failed to aggregate variants: %w", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}

func lowStockFilter(threshold int) bson.D {
	return bson.D{{Key: "quantity", Value: bson.D{
		{Key: "$gt", Value: 0},
		{Key: "$lte", Value: threshold},
	}}}
}
