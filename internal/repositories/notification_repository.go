package repositories

import (
	"context"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, to string, skip, limit int64) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, to string) (int64, error)
	MarkAllRead(ctx context.Context, to string) (int64, error)
	DeleteForRecipient(ctx context.Context, id primitive.ObjectID, to string) error
}

type mongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{collection: db.Collection("notifications")}
}

func (r *mongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	now := time.Now().UTC()
	notification.ID = primitive.NewObjectID()
	notification.IsRead = false
	notification.CreatedAt = now
	notification.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

func (r *mongoNotificationRepository) ListByRecipient(ctx context.Context, to string, skip, limit int64) ([]models.Notification, int64, error) {
	filter := bson.M{"to": to}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, to string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"to": to, "is_read": false})
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, to string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"to": to, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteForRecipient deletes a notification only if it is addressed to `to`.
// A notification owned by someone else is reported as not found.
func (r *mongoNotificationRepository) DeleteForRecipient(ctx context.Context, id primitive.ObjectID, to string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "to": to})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
