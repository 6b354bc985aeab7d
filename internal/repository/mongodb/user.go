package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	Role     string             `bson:"role"`
}

func (d userDocument) model() models.User {
	return models.User{ID: d.ID.Hex(), Username: d.Username, Role: models.Role(d.Role)}
}

// UserRepository reads accounts from the users collection. The password hash is never loaded.
type UserRepository struct {
	coll *mongo.Collection
}

var userProjection = bson.D{{Key: "username", Value: 1}, {Key: "role", Value: 1}}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNoDocument
	}
	var doc userDocument
	opts := options.FindOne().SetProjection(userProjection)
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}, opts).Decode(&doc); err != nil {
		if notFound(err) {
			return nil, repository.ErrNoDocument
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	u := doc.model()
	return &u, nil
}

func (r *UserRepository) FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	oids := objectIDs(ids)
	out := make(map[string]models.User, len(oids))
	if len(oids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(userProjection)
	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, d := range docs {
		out[d.ID.Hex()] = d.model()
	}
	return out, nil
}

// InsertUser creates an account document. It exists for seeding and tests; account
// management belongs to the identity service.
func (r *UserRepository) InsertUser(ctx context.Context, u *models.User) error {
	doc := userDocument{ID: primitive.NewObjectID(), Username: u.Username, Role: string(u.Role)}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.ID = doc.ID.Hex()
	return nil
}
