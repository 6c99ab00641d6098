package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListStatus is the lifecycle state of a shopping list.
type ListStatus string

const (
	ListDraft     ListStatus = "draft"
	ListActive    ListStatus = "active"
	ListCompleted ListStatus = "completed"
)

// ItemReason explains why an item is on a shopping list.
type ItemReason string

const (
	ReasonExpired           ItemReason = "expired"
	ReasonUsedUp            ItemReason = "used_up"
	ReasonExpiringSoon      ItemReason = "expiring_soon"
	ReasonMissingIngredient ItemReason = "missing_ingredient"
)

// ShoppingListItem is one line of required purchase.
type ShoppingListItem struct {
	ID              primitive.ObjectID  `bson:"_id" json:"id"`
	FoodItemID      primitive.ObjectID  `bson:"foodItemId" json:"foodItemId"`
	FoodItemName    string              `bson:"foodItemName" json:"foodItemName"`
	UnitID          primitive.ObjectID  `bson:"unitId" json:"unitId"`
	Quantity        float64             `bson:"quantity" json:"quantity"`
	Reason          ItemReason          `bson:"reason" json:"reason"`
	IsBought        bool                `bson:"isBought" json:"isBought"`
	PurchasedBy     *primitive.ObjectID `bson:"purchasedBy,omitempty" json:"purchasedBy,omitempty"`
	PurchasedAt     *time.Time          `bson:"purchasedAt,omitempty" json:"purchasedAt,omitempty"`
	ExpiryDate      *time.Time          `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	StorageLocation string              `bson:"storageLocation,omitempty" json:"storageLocation,omitempty"`
}

// ShoppingList groups purchase lines for one scope.
type ShoppingList struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerUserID      *primitive.ObjectID `bson:"ownerUserId" json:"ownerUserId"`
	GroupID          *primitive.ObjectID `bson:"groupId" json:"groupId"`
	CreatedBy        primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	Name             string              `bson:"name" json:"name"`
	Status           ListStatus          `bson:"status" json:"status"`
	IsAutoGenerated  bool                `bson:"isAutoGenerated" json:"isAutoGenerated"`
	SourceMealPlanID *primitive.ObjectID `bson:"sourceMealPlanId,omitempty" json:"sourceMealPlanId,omitempty"`
	Items            []ShoppingListItem  `bson:"items" json:"items"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
	CompletedAt      *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Scope returns the scope the list belongs to.
func (l ShoppingList) Scope() Scope { return ScopeOf(l.OwnerUserID, l.GroupID) }

// BoughtItems returns the items marked as bought.
func (l ShoppingList) BoughtItems() []ShoppingListItem {
	var out []ShoppingListItem
	for _, item := range l.Items {
		if item.IsBought {
			out = append(out, item)
		}
	}
	return out
}

// DemandRequirement is a transient required quantity for one food item/unit.
type DemandRequirement struct {
	FoodItemID primitive.ObjectID
	UnitID     primitive.ObjectID
	Quantity   float64
	Reason     ItemReason
}
