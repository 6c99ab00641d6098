package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

const (
	collBatches       = "inventory_batches"
	collNotifications = "notifications"
	collShoppingLists = "shopping_lists"
	collConsumptions  = "consumption_records"
	collUsers         = "users"
	collFamilies      = "family_groups"
	collFoodItems     = "food_items"
	collRecipes       = "recipes"
	collMealPlans     = "meal_plans"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewMongoDBRepository creates a new MongoDB repository and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		now:    time.Now,
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// EnsureIndexes creates the unique dedup index on notifications and the
// lookup indexes used by scoped queries.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collNotifications: {
			{
				Keys:    bson.D{{Key: "recipientUserId", Value: 1}, {Key: "kind", Value: 1}, {Key: "relatedEntityId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_dedup_key"),
			},
			{Keys: bson.D{{Key: "recipientUserId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		collBatches: {
			{Keys: bson.D{
				{Key: "groupId", Value: 1},
				{Key: "ownerUserId", Value: 1},
				{Key: "foodItemId", Value: 1},
				{Key: "unitId", Value: 1},
				{Key: "expiryDate", Value: 1},
				{Key: "storageLocation", Value: 1},
			}},
			{Keys: bson.D{{Key: "state", Value: 1}}},
		},
		collShoppingLists: {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "ownerUserId", Value: 1}, {Key: "status", Value: 1}, {Key: "isAutoGenerated", Value: 1}}},
		},
		collConsumptions: {
			{Keys: bson.D{{Key: "batchId", Value: 1}}},
		},
		collMealPlans: {
			{Keys: bson.D{{Key: "startDate", Value: 1}}},
		},
	}

	for coll, specs := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}

// scopeFilter translates a resolved scope into the ownership filter. A
// personal scope explicitly requires a null group.
func scopeFilter(scope models.Scope) bson.M {
	if scope.IsFamily() {
		return bson.M{"groupId": scope.GroupID}
	}
	return bson.M{"ownerUserId": scope.UserID, "groupId": nil}
}

func scopedByID(scope models.Scope, id primitive.ObjectID) bson.M {
	filter := scopeFilter(scope)
	filter["_id"] = id
	return filter
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, what string, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter, opts...).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, what)
		}
		return nil, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter any, what string, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", what, err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return out, nil
}

func insertedID(res *mongo.InsertOneResult) primitive.ObjectID {
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		return id
	}
	return primitive.NilObjectID
}
