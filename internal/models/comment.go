package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a comment on a post, or a reply when ParentID is set.
// PostID never changes after creation.
type Comment struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	PostID    primitive.ObjectID   `json:"postId" bson:"post_id"`
	ParentID  *primitive.ObjectID  `json:"parentId,omitempty" bson:"parent_id"`
	UserID    string               `json:"userId" bson:"user_id"`
	Content   string               `json:"content" bson:"content"`
	Image     string               `json:"image,omitempty" bson:"image,omitempty"`
	Likes     []string             `json:"likes" bson:"likes"`
	Replies   []primitive.ObjectID `json:"-" bson:"replies"`
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updated_at"`
}

// IsReply reports whether c hangs under another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// CreateCommentRequest defines the request body for creating a comment or reply
type CreateCommentRequest struct {
	Content string `json:"content" validate:"max=280"`
	Image   string `json:"image,omitempty" validate:"omitempty,url"`
}

// CommentView is a comment with its author and one level of replies expanded.
type CommentView struct {
	Comment
	Author  UserSummary   `json:"user"`
	Replies []CommentView `json:"replies"`
}

// CommentPage is one page of top-level comments of a post.
type CommentPage struct {
	Comments   []CommentView `json:"comments"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Total      int64         `json:"total"`
	HasMore    bool          `json:"hasMore"`
}

// CommentSummary is the subset of comment fields embedded in notifications.
type CommentSummary struct {
	ID      primitive.ObjectID `json:"id"`
	Content string             `json:"content"`
}
