// Package mongodb implements the repository contract on MongoDB. Collections and field names
// match the documents written by the existing Mongoose models (inventories, deliveries, users),
// including their numeric prices and pre-existing indexes.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/repository"
)

const (
	inventoryCollection = "inventories"
	deliveryCollection  = "deliveries"
	userCollection      = "users"

	barcodeIndex    = "barcode_unique"
	variantKeyIndex = "variant_key_unique"
)

// Store owns the MongoDB client and hands out the per-collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName), logger: logger}, nil
}

func inventoryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(barcodeIndex),
		},
		{
			Keys: bson.D{
				{Key: "itemName", Value: 1},
				{Key: "category", Value: 1},
				{Key: "size", Value: 1},
				{Key: "color", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName(variantKeyIndex),
		},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
}

func deliveryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "deliveryDate", Value: -1}}},
		{Keys: bson.D{{Key: "customerName", Value: 1}}},
		{Keys: bson.D{{Key: "barcode", Value: 1}}},
	}
}

// EnsureIndexes creates the unique indexes the stock ledger relies on plus the delivery
// query indexes. It is idempotent, and an existing index on the same keys is reused whatever
// its name, so collections indexed by an earlier deployment are accepted as they are.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.createMissingIndexes(ctx, s.db.Collection(inventoryCollection), inventoryIndexes()); err != nil {
		return fmt.Errorf("create inventory indexes: %w", err)
	}
	if err := s.createMissingIndexes(ctx, s.db.Collection(deliveryCollection), deliveryIndexes()); err != nil {
		return fmt.Errorf("create delivery indexes: %w", err)
	}

	s.logger.Info("mongodb indexes ensured", zap.String("database", s.db.Name()))
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Inventory returns the variant repository.
func (s *Store) Inventory() *InventoryRepository {
	return &InventoryRepository{coll: s.db.Collection(inventoryCollection), logger: s.logger}
}

// Deliveries returns the delivery repository.
func (s *Store) Deliveries() *DeliveryRepository {
	return &DeliveryRepository{coll: s.db.Collection(deliveryCollection)}
}

// Users returns the read-only user repository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(userCollection)}
}

func (s *Store) createMissingIndexes(ctx context.Context, coll *mongo.Collection, wanted []mongo.IndexModel) error {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var existing []bson.Raw
	if err := cur.All(ctx, &existing); err != nil {
		return fmt.Errorf("decode indexes: %w", err)
	}

	missing, err := missingIndexes(wanted, existing)
	if err != nil {
		return err
	}
	for _, idx := range existing {
		if unique, _ := idx.Lookup("unique").BooleanOK(); !unique && wantsUnique(wanted, idx) {
			name, _ := idx.Lookup("name").StringValueOK()
			s.logger.Warn("existing index is not unique, uniqueness is not enforced",
				zap.String("collection", coll.Name()),
				zap.String("index", name))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	_, err = coll.Indexes().CreateMany(ctx, missing)
	return err
}

// missingIndexes returns the wanted indexes whose key pattern no existing index covers.
func missingIndexes(wanted []mongo.IndexModel, existing []bson.Raw) ([]mongo.IndexModel, error) {
	have := make(map[string]struct{}, len(existing))
	for _, idx := range existing {
		keys, ok := idx.Lookup("key").DocumentOK()
		if !ok {
			continue
		}
		have[keySignature(keys)] = struct{}{}
	}

	var missing []mongo.IndexModel
	for _, m := range wanted {
		keys, err := bson.Marshal(m.Keys)
		if err != nil {
			return nil, fmt.Errorf("encode index keys: %w", err)
		}
		if _, ok := have[keySignature(keys)]; !ok {
			missing = append(missing, m)
		}
	}
	return missing, nil
}

func wantsUnique(wanted []mongo.IndexModel, idx bson.Raw) bool {
	keys, ok := idx.Lookup("key").DocumentOK()
	if !ok {
		return false
	}
	sig := keySignature(keys)
	for _, m := range wanted {
		if m.Options == nil || m.Options.Unique == nil || !*m.Options.Unique {
			continue
		}
		raw, err := bson.Marshal(m.Keys)
		if err == nil && keySignature(raw) == sig {
			return true
		}
	}
	return false
}

// keySignature renders an index key pattern as "field:dir,..." with numeric directions
// normalised to 1 or -1, since shells and drivers store them as int32, int64 or double.
func keySignature(keys bson.Raw) string {
	elems, err := keys.Elements()
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		v := e.Value()
		var dir string
		switch v.Type {
		case bson.TypeInt32:
			dir = direction(float64(v.Int32()))
		case bson.TypeInt64:
			dir = direction(float64(v.Int64()))
		case bson.TypeDouble:
			dir = direction(v.Double())
		case bson.TypeString:
			dir = v.StringValue()
		default:
			dir = v.Type.String()
		}
		parts = append(parts, e.Key()+":"+dir)
	}
	return strings.Join(parts, ",")
}

func direction(f float64) string {
	if f < 0 {
		return "-1"
	}
	return "1"
}

// duplicateKeyError maps a unique index violation to the matching repository sentinel.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	switch duplicateKeyField(err) {
	case "barcode":
		return repository.ErrDuplicateBarcode
	case "itemName":
		return repository.ErrDuplicateVariant
	default:
		return err
	}
}

// duplicateKeyField returns the leading field of the violated index. It prefers the
// keyPattern the server attaches to the write error and falls back to the message text,
// which names either the index or the duplicated key.
func duplicateKeyField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if len(e.Raw) == 0 {
				continue
			}
			kp, ok := e.Raw.Lookup("keyPattern").DocumentOK()
			if !ok {
				continue
			}
			if elems, err := kp.Elements(); err == nil && len(elems) > 0 {
				return elems[0].Key()
			}
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, barcodeIndex), strings.Contains(msg, "index: barcode_1 "),
		strings.Contains(msg, "dup key: { barcode:"):
		return "barcode"
	case strings.Contains(msg, variantKeyIndex), strings.Contains(msg, "dup key: { itemName:"):
		return "itemName"
	default:
		return ""
	}
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out
}

func notFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
