package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB
type Post struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID    string               `json:"userId" bson:"user_id"` // identity-provider UID of the author
	Content   string               `json:"content" bson:"content"`
	Image     string               `json:"image,omitempty" bson:"image,omitempty"`
	Likes     []string             `json:"likes" bson:"likes"`
	Comments  []primitive.ObjectID `json:"comments" bson:"comments"` // top-level comments only
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content string `json:"content" validate:"max=280"`
	Image   string `json:"image,omitempty" validate:"omitempty,url"`
}

// PostView is a post with its author expanded.
type PostView struct {
	Post
	Author UserSummary `json:"user"`
}

// PostPage is one page of posts.
type PostPage struct {
	Posts      []PostView `json:"posts"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
	HasMore    bool       `json:"hasMore"`
}

// PostSummary is the subset of post fields embedded in notifications.
type PostSummary struct {
	ID      primitive.ObjectID `json:"id"`
	Content string             `json:"content"`
	Image   string             `json:"image,omitempty"`
}

// LikeResult reports the like set after a toggle.
type LikeResult struct {
	Likes []string `json:"likes"`
	Liked bool     `json:"liked"`
}
