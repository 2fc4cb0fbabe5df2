package services

import "github.com/anonto42/chirpline/backend/pkg/config"

// NotificationPolicy selects which events notify the owner of the affected
// content. Self-actions never notify regardless of policy.
type NotificationPolicy struct {
	OnFollow       bool
	OnPostComment  bool
	OnPostLike     bool
	OnCommentReply bool
	OnCommentLike  bool
}

// DefaultNotificationPolicy notifies on follows, post comments and post likes only.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		OnFollow:      true,
		OnPostComment: true,
		OnPostLike:    true,
	}
}

// DeletePolicy decides what happens to dependents of deleted content.
// Detaching a deleted comment from its post or parent always happens.
type DeletePolicy struct {
	// CascadeReplies deletes the replies of a deleted top-level comment.
	CascadeReplies bool
	// CascadePostComments deletes every comment of a deleted post.
	CascadePostComments bool
}

// PoliciesFromConfig applies the configured switches.
func PoliciesFromConfig(cfg *config.Config) (NotificationPolicy, DeletePolicy) {
	notify := DefaultNotificationPolicy()
	notify.OnCommentReply = cfg.NotifyOnCommentReply
	notify.OnCommentLike = cfg.NotifyOnCommentLike

	return notify, DeletePolicy{
		CascadeReplies:      cfg.CascadeCommentReplies,
		CascadePostComments: cfg.CascadePostComments,
	}
}
