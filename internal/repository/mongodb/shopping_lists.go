package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

// FindShoppingList fetches one list inside the scope.
func (r *MongoDBRepository) FindShoppingList(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.ShoppingList, error) {
	return findOne[models.ShoppingList](ctx, r.coll(collShoppingLists), scopedByID(scope, id), "shopping list")
}

// FindAutoDraft returns the newest auto-generated draft of the scope.
func (r *MongoDBRepository) FindAutoDraft(ctx context.Context, scope models.Scope) (*models.ShoppingList, error) {
	filter := scopeFilter(scope)
	filter["status"] = models.ListDraft
	filter["isAutoGenerated"] = true

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findOne[models.ShoppingList](ctx, r.coll(collShoppingLists), filter, "auto-generated draft", opts)
}

// InsertShoppingList stores a new list and assigns its ID.
func (r *MongoDBRepository) InsertShoppingList(ctx context.Context, list *models.ShoppingList) error {
	if list.ID.IsZero() {
		list.ID = primitive.NewObjectID()
	}
	if _, err := r.coll(collShoppingLists).InsertOne(ctx, list); err != nil {
		return fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return nil
}

// ReplaceItems overwrites the items and name of a non-completed list.
func (r *MongoDBRepository) ReplaceItems(ctx context.Context, id primitive.ObjectID, name string, items []models.ShoppingListItem) error {
	set := bson.M{"items": items, "updatedAt": r.now()}
	if name != "" {
		set["name"] = name
	}
	res, err := r.coll(collShoppingLists).UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ListCompleted}},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update shopping list items: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: shopping list is completed or missing", models.ErrInvalidState)
	}
	return nil
}

// CompleteShoppingList claims the transition to completed. Only one caller
// can win it.
func (r *MongoDBRepository) CompleteShoppingList(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.coll(collShoppingLists).UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.ListCompleted}},
		bson.M{"$set": bson.M{"status": models.ListCompleted, "completedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete shopping list: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// DeleteShoppingList removes a list inside the scope.
func (r *MongoDBRepository) DeleteShoppingList(ctx context.Context, scope models.Scope, id primitive.ObjectID) error {
	res, err := r.coll(collShoppingLists).DeleteOne(ctx, scopedByID(scope, id))
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: shopping list", models.ErrNotFound)
	}
	return nil
}
