package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	ListPosts(ctx context.Context, userID string, skip, limit int64) ([]models.Post, int64, error)
	SearchPosts(ctx context.Context, pattern string, skip, limit int64) ([]models.Post, int64, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	AddComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) ([]string, bool, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByIDs retrieves every existing post among ids, in no particular order
func (r *MongoPostRepository) GetPostsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// ListPosts returns posts newest first, optionally restricted to one author,
// together with the total number of matching posts.
func (r *MongoPostRepository) ListPosts(ctx context.Context, userID string, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	return r.page(ctx, filter, skip, limit)
}

// SearchPosts matches post content against a case-insensitive pattern.
func (r *MongoPostRepository) SearchPosts(ctx context.Context, pattern string, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{"content": primitive.Regex{Pattern: pattern, Options: "i"}}
	return r.page(ctx, filter, skip, limit)
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment appends a top-level comment id to the post.
func (r *MongoPostRepository) AddComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return r.updateExisting(ctx, postID, bson.M{
		"$push": bson.M{"comments": commentID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveComment pulls a comment id from the post.
func (r *MongoPostRepository) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return r.updateExisting(ctx, postID, bson.M{
		"$pull": bson.M{"comments": commentID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// ToggleLike adds userID to the post's likes, or removes it when already present.
func (r *MongoPostRepository) ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) ([]string, bool, error) {
	return toggleMembership(ctx, r.collection, postID, "likes", userID)
}

func (r *MongoPostRepository) updateExisting(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPostRepository) page(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	posts, err := r.find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

const maxToggleAttempts = 16

// toggleMembership flips value in the array field of document id with two
// conditional single-document updates, so concurrent toggles never leave a
// duplicate entry.
func toggleMembership(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, field, value string) ([]string, bool, error) {
	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	decode := func(res *mongo.SingleResult) ([]string, error) {
		raw, err := res.Raw()
		if err != nil {
			return nil, err
		}
		values := []string{}
		if arr, ok := raw.Lookup(field).ArrayOK(); ok {
			elems, err := arr.Values()
			if err != nil {
				return nil, err
			}
			for _, e := range elems {
				values = append(values, e.StringValue())
			}
		}
		return values, nil
	}

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		now := time.Now().UTC()
		res := coll.FindOneAndUpdate(ctx,
			bson.M{"_id": id, field: bson.M{"$ne": value}},
			bson.M{"$addToSet": bson.M{field: value}, "$set": bson.M{"updated_at": now}},
			after,
		)
		values, err := decode(res)
		if err == nil {
			return values, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}

		res = coll.FindOneAndUpdate(ctx,
			bson.M{"_id": id, field: value},
			bson.M{"$pull": bson.M{field: value}, "$set": bson.M{"updated_at": now}},
			after,
		)
		values, err = decode(res)
		if err == nil {
			return values, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}

		// Neither update matched: the document is gone, or a concurrent
		// toggle removed value between the two updates.
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return nil, false, ErrNotFound
		}
	}
	return nil, false, fmt.Errorf("toggle %s: too much contention", field)
}
