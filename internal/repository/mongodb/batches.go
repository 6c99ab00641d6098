package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

// FindBatches lists batches matching the filter, oldest expiry first.
func (r *MongoDBRepository) FindBatches(ctx context.Context, filter repository.BatchFilter) ([]models.InventoryBatch, error) {
	query := bson.M{}
	if filter.Scope != nil {
		query = scopeFilter(*filter.Scope)
	}

	state := bson.M{}
	if len(filter.States) > 0 {
		state["$in"] = filter.States
	}
	if len(filter.ExcludeStates) > 0 {
		state["$nin"] = filter.ExcludeStates
	}
	if len(state) > 0 {
		query["state"] = state
	}
	if filter.FoodItemID != nil {
		query["foodItemId"] = *filter.FoodItemID
	}
	if filter.PositiveQuantity {
		query["quantity"] = bson.M{"$gt": 0}
	}

	opts := options.Find().SetSort(bson.D{{Key: "expiryDate", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[models.InventoryBatch](ctx, r.coll(collBatches), query, "inventory batches", opts)
}

// FindBatch fetches one batch inside the scope.
func (r *MongoDBRepository) FindBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.InventoryBatch, error) {
	return findOne[models.InventoryBatch](ctx, r.coll(collBatches), scopedByID(scope, id), "inventory batch")
}

// InsertBatch stores a new batch and assigns its ID.
func (r *MongoDBRepository) InsertBatch(ctx context.Context, batch *models.InventoryBatch) error {
	if batch.ID.IsZero() {
		batch.ID = primitive.NewObjectID()
	}
	res, err := r.coll(collBatches).InsertOne(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to insert inventory batch: %w", err)
	}
	batch.ID = insertedID(res)
	return nil
}

// UpdateBatch applies a patch by ID.
func (r *MongoDBRepository) UpdateBatch(ctx context.Context, id primitive.ObjectID, patch models.BatchPatch) error {
	if patch.Empty() {
		return nil
	}

	set := bson.M{"updatedAt": r.now()}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if patch.ExpiryDate != nil {
		set["expiryDate"] = *patch.ExpiryDate
	}
	if patch.StorageLocation != nil {
		set["storageLocation"] = *patch.StorageLocation
	}
	if patch.State != nil {
		set["state"] = *patch.State
	}

	res, err := r.coll(collBatches).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update inventory batch: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: inventory batch", models.ErrNotFound)
	}
	return nil
}

// MergeBatch performs the acquisition as one upsert: $inc on the matching
// batch, or an insert carrying the new document's fields.
func (r *MongoDBRepository) MergeBatch(ctx context.Context, batch models.InventoryBatch) (models.InventoryBatch, bool, error) {
	key := repository.KeyOf(batch)
	filter := scopeFilter(key.Scope)
	filter["foodItemId"] = key.FoodItemID
	filter["unitId"] = key.UnitID
	filter["storageLocation"] = key.StorageLocation
	filter["expiryDate"] = bson.M{"$gte": key.ExpiryDay, "$lt": key.ExpiryDay.AddDate(0, 0, 1)}
	filter["state"] = bson.M{"$ne": models.StateUsedUp}

	newID := primitive.NewObjectID()
	now := r.now()
	onInsert := bson.M{
		"_id":          newID,
		"createdBy":    batch.CreatedBy,
		"foodItemName": batch.FoodItemName,
		"expiryDate":   batch.ExpiryDate,
		"state":        batch.State,
		"source":       batch.Source,
		"createdAt":    now,
	}
	if batch.SourceShoppingListID != nil {
		onInsert["sourceShoppingListId"] = *batch.SourceShoppingListID
	}
	if key.Scope.IsFamily() {
		onInsert["ownerUserId"] = nil
	}

	update := bson.M{
		"$inc":         bson.M{"quantity": batch.Quantity},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": onInsert,
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var stored models.InventoryBatch
	if err := r.coll(collBatches).FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return models.InventoryBatch{}, false, fmt.Errorf("failed to merge inventory batch: %w", err)
	}

	// $inc works on binary floats; snap the sum back to the stored precision.
	// A concurrent merge that moved the quantity in between rounds its own sum.
	if rounded := models.RoundQuantity(stored.Quantity); rounded != stored.Quantity {
		if _, err := r.coll(collBatches).UpdateOne(ctx,
			bson.M{"_id": stored.ID, "quantity": stored.Quantity},
			bson.M{"$set": bson.M{"quantity": rounded}},
		); err != nil {
			return models.InventoryBatch{}, false, fmt.Errorf("failed to round merged quantity: %w", err)
		}
		stored.Quantity = rounded
	}
	return stored, stored.ID != newID, nil
}

// DeleteBatch removes a batch inside the scope.
func (r *MongoDBRepository) DeleteBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) error {
	res, err := r.coll(collBatches).DeleteOne(ctx, scopedByID(scope, id))
	if err != nil {
		return fmt.Errorf("failed to delete inventory batch: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: inventory batch", models.ErrNotFound)
	}
	return nil
}

// InsertConsumption stores a consumption record.
func (r *MongoDBRepository) InsertConsumption(ctx context.Context, rec *models.ConsumptionRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, err := r.coll(collConsumptions).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert consumption record: %w", err)
	}
	return nil
}

// DeleteConsumptions removes every record of a batch.
func (r *MongoDBRepository) DeleteConsumptions(ctx context.Context, batchID primitive.ObjectID) (int64, error) {
	res, err := r.coll(collConsumptions).DeleteMany(ctx, bson.M{"batchId": batchID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete consumption records: %w", err)
	}
	return res.DeletedCount, nil
}
