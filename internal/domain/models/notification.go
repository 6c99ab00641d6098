package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationKind enumerates alert categories.
type NotificationKind string

const (
	KindExpiringSoon   NotificationKind = "expiring_soon"
	KindExpired        NotificationKind = "expired"
	KindShoppingUpdate NotificationKind = "shopping_update"
	KindMealReminder   NotificationKind = "meal_reminder"
)

// EntityType names the target of a notification back-reference.
type EntityType string

const (
	EntityInventoryBatch EntityType = "InventoryBatch"
	EntityMealPlan       EntityType = "MealPlan"
	EntityShoppingList   EntityType = "ShoppingList"
)

// Visibility is the notification scope label.
type Visibility string

const (
	VisibilityPersonal Visibility = "personal"
	VisibilityFamily   Visibility = "family"
)

// Notification is one delivered alert.
type Notification struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientUserID   primitive.ObjectID `bson:"recipientUserId" json:"recipientUserId"`
	Kind              NotificationKind   `bson:"kind" json:"kind"`
	Title             string             `bson:"title" json:"title"`
	Message           string             `bson:"message" json:"message"`
	RelatedEntityID   primitive.ObjectID `bson:"relatedEntityId" json:"relatedEntityId"`
	RelatedEntityType EntityType         `bson:"relatedEntityType" json:"relatedEntityType"`
	Scope             Visibility         `bson:"scope" json:"scope"`
	DaysLeft          *int               `bson:"daysLeft,omitempty" json:"daysLeft,omitempty"`
	IsRead            bool               `bson:"isRead" json:"isRead"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	ReadAt            *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
}

// DedupKey bounds notification creation to one per recipient, kind and
// related entity.
type DedupKey struct {
	RecipientUserID primitive.ObjectID
	Kind            NotificationKind
	RelatedEntityID primitive.ObjectID
}

// Key returns the dedup key of the notification.
func (n Notification) Key() DedupKey {
	return DedupKey{RecipientUserID: n.RecipientUserID, Kind: n.Kind, RelatedEntityID: n.RelatedEntityID}
}
