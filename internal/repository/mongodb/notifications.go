package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

// FindNotification looks up the notification holding the dedup key.
func (r *MongoDBRepository) FindNotification(ctx context.Context, key models.DedupKey) (*models.Notification, error) {
	filter := bson.M{
		"recipientUserId": key.RecipientUserID,
		"kind":            key.Kind,
		"relatedEntityId": key.RelatedEntityID,
	}
	return findOne[models.Notification](ctx, r.coll(collNotifications), filter, "notification")
}

// InsertNotification stores a notification. A collision on the unique dedup
// index is reported as repository.ErrDuplicate.
func (r *MongoDBRepository) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if _, err := r.coll(collNotifications).InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: notification %s/%s", repository.ErrDuplicate, n.Kind, n.RelatedEntityID.Hex())
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// FindNotifications lists a recipient's notifications, newest first.
func (r *MongoDBRepository) FindNotifications(ctx context.Context, filter repository.NotificationFilter) ([]models.Notification, error) {
	query := bson.M{"recipientUserId": filter.RecipientUserID}
	if filter.UnreadOnly {
		query["isRead"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return findMany[models.Notification](ctx, r.coll(collNotifications), query, "notifications", opts)
}

// MarkNotificationRead acknowledges one of the recipient's notifications.
func (r *MongoDBRepository) MarkNotificationRead(ctx context.Context, recipient, id primitive.ObjectID, at time.Time) error {
	res, err := r.coll(collNotifications).UpdateOne(ctx,
		bson.M{"_id": id, "recipientUserId": recipient},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: notification", models.ErrNotFound)
	}
	return nil
}

// DeleteNotifications removes every notification pointing at the entity.
func (r *MongoDBRepository) DeleteNotifications(ctx context.Context, relatedEntityID primitive.ObjectID) (int64, error) {
	res, err := r.coll(collNotifications).DeleteMany(ctx, bson.M{"relatedEntityId": relatedEntityID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return res.DeletedCount, nil
}
