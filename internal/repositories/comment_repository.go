package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error)
	ListTopLevel(ctx context.Context, postID primitive.ObjectID, skip, limit int64) ([]models.Comment, error)
	CountTopLevel(ctx context.Context, postID primitive.ObjectID) (int64, error)
	AddReply(ctx context.Context, parentID, replyID primitive.ObjectID) error
	RemoveReply(ctx context.Context, parentID, replyID primitive.ObjectID) error
	ToggleLike(ctx context.Context, commentID primitive.ObjectID, userID string) ([]string, bool, error)
	DeleteComment(ctx context.Context, id primitive.ObjectID) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection("comments")}
}

// CreateComment inserts a comment or reply. The caller links it to its post or parent.
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	now := time.Now().UTC()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	if comment.Replies == nil {
		comment.Replies = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// GetCommentByID retrieves a comment by ID from MongoDB
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByIDs returns the comments among ids that still exist, in the order of ids.
func (r *MongoCommentRepository) GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	found, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Comment, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	ordered := make([]models.Comment, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// ListTopLevel returns one page of a post's top-level comments, newest first.
func (r *MongoCommentRepository) ListTopLevel(ctx context.Context, postID primitive.ObjectID, skip, limit int64) ([]models.Comment, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	return r.find(ctx, topLevelFilter(postID), findOptions)
}

// CountTopLevel counts a post's top-level comments.
func (r *MongoCommentRepository) CountTopLevel(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, topLevelFilter(postID))
}

// AddReply appends replyID to the parent's replies.
func (r *MongoCommentRepository) AddReply(ctx context.Context, parentID, replyID primitive.ObjectID) error {
	return r.updateExisting(ctx, parentID, bson.M{
		"$push": bson.M{"replies": replyID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveReply pulls replyID from the parent's replies.
func (r *MongoCommentRepository) RemoveReply(ctx context.Context, parentID, replyID primitive.ObjectID) error {
	return r.updateExisting(ctx, parentID, bson.M{
		"$pull": bson.M{"replies": replyID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// ToggleLike adds userID to the comment's likes, or removes it when already present.
func (r *MongoCommentRepository) ToggleLike(ctx context.Context, commentID primitive.ObjectID, userID string) ([]string, bool, error) {
	return toggleMembership(ctx, r.collection, commentID, "likes", userID)
}

// DeleteComment deletes a comment by ID from MongoDB
func (r *MongoCommentRepository) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes every listed comment and reports how many existed.
func (r *MongoCommentRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByPost removes every comment and reply of a post and returns their ids.
func (r *MongoCommentRepository) DeleteByPost(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	found, err := r.find(ctx, bson.M{"post_id": postID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(found))
	for _, c := range found {
		ids = append(ids, c.ID)
	}
	if _, err := r.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *MongoCommentRepository) updateExisting(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCommentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Comment, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Replies store parent_id explicitly, so top-level comments are those where it is null.
func topLevelFilter(postID primitive.ObjectID) bson.M {
	return bson.M{"post_id": postID, "parent_id": nil}
}
