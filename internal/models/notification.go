package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType enumerates the events that fan out to a recipient.
type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
)

// Notification is written once per triggering event (MongoDB).
type Notification struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	From      string              `json:"from" bson:"from"`
	To        string              `json:"to" bson:"to"`
	Type      NotificationType    `json:"type" bson:"type"`
	PostID    *primitive.ObjectID `json:"postId,omitempty" bson:"post_id,omitempty"`
	CommentID *primitive.ObjectID `json:"commentId,omitempty" bson:"comment_id,omitempty"`
	IsRead    bool                `json:"isRead" bson:"is_read"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updated_at"`
}

// NotificationView expands the actor, post and comment references.
type NotificationView struct {
	ID        primitive.ObjectID `json:"id"`
	From      UserSummary        `json:"from"`
	To        string             `json:"to"`
	Type      NotificationType   `json:"type"`
	Post      *PostSummary       `json:"post,omitempty"`
	Comment   *CommentSummary    `json:"comment,omitempty"`
	IsRead    bool               `json:"isRead"`
	CreatedAt time.Time          `json:"createdAt"`
}

// NotificationPage is one page of a recipient's notifications.
type NotificationPage struct {
	Notifications []NotificationView `json:"notifications"`
	Page          int                `json:"page"`
	TotalPages    int                `json:"totalPages"`
	Total         int64              `json:"total"`
	HasMore       bool               `json:"hasMore"`
}
