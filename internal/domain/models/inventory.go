package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FreshnessState is the derived freshness of an inventory batch.
type FreshnessState string

const (
	StateAvailable    FreshnessState = "available"
	StateExpiringSoon FreshnessState = "expiring_soon"
	StateExpired      FreshnessState = "expired"
	StateUsedUp       FreshnessState = "used_up"
)

// AcquisitionSource records how a batch entered the inventory.
type AcquisitionSource string

const (
	SourceManual       AcquisitionSource = "manual"
	SourceShoppingList AcquisitionSource = "shopping_list"
)

// DefaultStorageLocation is used when neither the caller nor the food item
// names one.
const DefaultStorageLocation = "fridge"

// InventoryBatch is one acquired quantity of a food item with a single expiry
// date. OwnerUserID and GroupID are mutually exclusive.
type InventoryBatch struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerUserID          *primitive.ObjectID `bson:"ownerUserId" json:"ownerUserId"`
	GroupID              *primitive.ObjectID `bson:"groupId" json:"groupId"`
	CreatedBy            primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	FoodItemID           primitive.ObjectID  `bson:"foodItemId" json:"foodItemId"`
	FoodItemName         string              `bson:"foodItemName" json:"foodItemName"`
	UnitID               primitive.ObjectID  `bson:"unitId" json:"unitId"`
	Quantity             float64             `bson:"quantity" json:"quantity"`
	ExpiryDate           time.Time           `bson:"expiryDate" json:"expiryDate"`
	StorageLocation      string              `bson:"storageLocation" json:"storageLocation"`
	State                FreshnessState      `bson:"state" json:"state"`
	Source               AcquisitionSource   `bson:"source" json:"source"`
	SourceShoppingListID *primitive.ObjectID `bson:"sourceShoppingListId,omitempty" json:"sourceShoppingListId,omitempty"`
	DaysLeft             int                 `bson:"-" json:"daysLeft"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Scope returns the scope the batch belongs to.
func (b InventoryBatch) Scope() Scope { return ScopeOf(b.OwnerUserID, b.GroupID) }

// BatchPatch lists the fields updateById may change. Nil fields are left as is.
type BatchPatch struct {
	Quantity        *float64
	ExpiryDate      *time.Time
	StorageLocation *string
	State           *FreshnessState
}

// Empty reports whether the patch changes nothing.
func (p BatchPatch) Empty() bool {
	return p.Quantity == nil && p.ExpiryDate == nil && p.StorageLocation == nil && p.State == nil
}

// ConsumptionRecord logs one "use" action against a batch.
type ConsumptionRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID    primitive.ObjectID `bson:"batchId" json:"batchId"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Quantity   float64            `bson:"quantity" json:"quantity"`
	ConsumedAt time.Time          `bson:"consumedAt" json:"consumedAt"`
}
