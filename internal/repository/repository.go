// Package repository defines the persistence collaborators the core depends on.
// Every scoped read and write takes a models.Scope built by the scope resolver;
// stores never derive identity filters on their own.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
)

// ErrDuplicate is returned when an insert collides with a unique index.
var ErrDuplicate = errors.New("duplicate key")

// BatchFilter narrows FindBatches. A nil Scope means every scope (system sweeps).
type BatchFilter struct {
	Scope            *models.Scope
	States           []models.FreshnessState
	ExcludeStates    []models.FreshnessState
	FoodItemID       *primitive.ObjectID
	PositiveQuantity bool
}

// MergeKey identifies batches that an acquisition folds into.
type MergeKey struct {
	Scope           models.Scope
	FoodItemID      primitive.ObjectID
	UnitID          primitive.ObjectID
	ExpiryDay       time.Time
	StorageLocation string
}

// KeyOf builds the merge key of a batch.
func KeyOf(b models.InventoryBatch) MergeKey {
	return MergeKey{
		Scope:           b.Scope(),
		FoodItemID:      b.FoodItemID,
		UnitID:          b.UnitID,
		ExpiryDay:       b.ExpiryDate,
		StorageLocation: b.StorageLocation,
	}
}

// BatchStore persists inventory batches.
type BatchStore interface {
	FindBatches(ctx context.Context, filter BatchFilter) ([]models.InventoryBatch, error)
	// FindBatch returns models.ErrNotFound when the batch is absent or outside scope.
	FindBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.InventoryBatch, error)
	InsertBatch(ctx context.Context, batch *models.InventoryBatch) error
	UpdateBatch(ctx context.Context, id primitive.ObjectID, patch models.BatchPatch) error
	// MergeBatch adds batch.Quantity to the non-used_up batch sharing its merge
	// key, or inserts batch when none exists. It returns the stored document and
	// whether an existing one was incremented.
	MergeBatch(ctx context.Context, batch models.InventoryBatch) (models.InventoryBatch, bool, error)
	DeleteBatch(ctx context.Context, scope models.Scope, id primitive.ObjectID) error
}

// NotificationFilter narrows FindNotifications.
type NotificationFilter struct {
	RecipientUserID primitive.ObjectID
	UnreadOnly      bool
	Limit           int64
}

// NotificationStore persists notifications. Inserts must honor the dedup key.
type NotificationStore interface {
	FindNotification(ctx context.Context, key models.DedupKey) (*models.Notification, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
	FindNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, recipient, id primitive.ObjectID, at time.Time) error
	DeleteNotifications(ctx context.Context, relatedEntityID primitive.ObjectID) (int64, error)
}

// ShoppingListStore persists shopping lists with embedded items.
type ShoppingListStore interface {
	FindShoppingList(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.ShoppingList, error)
	// FindAutoDraft returns the auto-generated draft list of the scope, or
	// models.ErrNotFound.
	FindAutoDraft(ctx context.Context, scope models.Scope) (*models.ShoppingList, error)
	InsertShoppingList(ctx context.Context, list *models.ShoppingList) error
	ReplaceItems(ctx context.Context, id primitive.ObjectID, name string, items []models.ShoppingListItem) error
	// CompleteShoppingList flips a non-completed list to completed. It returns
	// false when the list was already completed.
	CompleteShoppingList(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	DeleteShoppingList(ctx context.Context, scope models.Scope, id primitive.ObjectID) error
}

// ConsumptionStore persists "use" records.
type ConsumptionStore interface {
	InsertConsumption(ctx context.Context, rec *models.ConsumptionRecord) error
	DeleteConsumptions(ctx context.Context, batchID primitive.ObjectID) (int64, error)
}

// HouseholdStore reads users and family groups.
type HouseholdStore interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindFamilyGroup(ctx context.Context, id primitive.ObjectID) (*models.FamilyGroup, error)
}

// CatalogStore reads food items, recipes and meal plans.
type CatalogStore interface {
	FindFoodItem(ctx context.Context, id primitive.ObjectID) (*models.FoodItem, error)
	FindRecipe(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	FindMealPlan(ctx context.Context, scope models.Scope, id primitive.ObjectID) (*models.MealPlan, error)
	// FindMealPlansStarting returns every plan whose start date lies in [from, to).
	FindMealPlansStarting(ctx context.Context, from, to time.Time) ([]models.MealPlan, error)
}

// Store bundles every collaborator; both backends implement it.
type Store interface {
	BatchStore
	NotificationStore
	ShoppingListStore
	ConsumptionStore
	HouseholdStore
	CatalogStore
	Close(ctx context.Context) error
}
