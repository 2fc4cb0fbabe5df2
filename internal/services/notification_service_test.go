package services

import (
	"context"
	"testing"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotify_SelfActionsNeverNotify(t *testing.T) {
	all := NotificationPolicy{OnFollow: true, OnPostComment: true, OnPostLike: true, OnCommentReply: true, OnCommentLike: true}
	f := newFixture(all, DeletePolicy{})
	ctx := context.Background()
	postID, commentID := primitive.NewObjectID(), primitive.NewObjectID()

	n, err := f.notifications.NotifyOnFollow(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Nil(t, n)
	n, err = f.notifications.NotifyOnComment(ctx, "u1", "u1", postID, commentID, false)
	require.NoError(t, err)
	assert.Nil(t, n)
	n, err = f.notifications.NotifyOnLike(ctx, "u1", "u1", postID, &commentID)
	require.NoError(t, err)
	assert.Nil(t, n)

	assert.Empty(t, f.db.notifications)
}

func TestNotify_PolicyGatesEachEvent(t *testing.T) {
	f := newFixture(NotificationPolicy{}, DeletePolicy{})
	ctx := context.Background()
	postID, commentID := primitive.NewObjectID(), primitive.NewObjectID()

	n, err := f.notifications.NotifyOnFollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.Nil(t, n)
	n, err = f.notifications.NotifyOnComment(ctx, "a", "b", postID, commentID, true)
	require.NoError(t, err)
	assert.Nil(t, n)
	n, err = f.notifications.NotifyOnLike(ctx, "a", "b", postID, nil)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, f.db.notifications)

	f = defaultFixture()
	n, err = f.notifications.NotifyOnLike(ctx, "a", "b", postID, nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationLike, n.Type)
	assert.False(t, n.IsRead)
}

func TestListNotifications_ExpandsReferences(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	f.db.addUser("author", "aaron")
	post := f.db.addPost("owner", "the post")

	c, err := f.comments.CreateComment(ctx, "author", post.ID.Hex(), models.CreateCommentRequest{Content: "the comment"})
	require.NoError(t, err)
	_, err = f.users.ToggleFollow(ctx, "author", "owner")
	require.NoError(t, err)

	page, err := f.notifications.ListNotifications(ctx, "owner", pagination.Parse("", "", pagination.DefaultNotificationLimit))
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(2), page.Total)

	follow, comment := page.Notifications[0], page.Notifications[1]
	assert.Equal(t, models.NotificationFollow, follow.Type)
	assert.Equal(t, "aaron", follow.From.Username)
	assert.Nil(t, follow.Post)

	assert.Equal(t, models.NotificationComment, comment.Type)
	require.NotNil(t, comment.Post)
	assert.Equal(t, "the post", comment.Post.Content)
	require.NotNil(t, comment.Comment)
	assert.Equal(t, c.ID, comment.Comment.ID)
	assert.Equal(t, "the comment", comment.Comment.Content)
}

func TestListNotifications_DeletedReferencesExpandToNil(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	postID, commentID := primitive.NewObjectID(), primitive.NewObjectID()
	_, err := f.notifications.NotifyOnComment(ctx, "vanished", "owner", postID, commentID, false)
	require.NoError(t, err)

	page, err := f.notifications.ListNotifications(ctx, "owner", pagination.New(1, 10, 10))
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Nil(t, page.Notifications[0].Post)
	assert.Nil(t, page.Notifications[0].Comment)
	assert.Equal(t, "vanished", page.Notifications[0].From.UID)
}

func TestListNotifications_RequiresProfile(t *testing.T) {
	f := defaultFixture()

	_, err := f.notifications.ListNotifications(context.Background(), "nobody", pagination.New(1, 10, 10))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUnreadCount_CachedAndDroppedOnChange(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	f.db.addUser("fan", "fiona")
	post := f.db.addPost("owner", "hello")

	count, err := f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Contains(t, f.db.unread, "owner", "miss populates the cache")

	_, err = f.posts.ToggleLikePost(ctx, "fan", post.ID.Hex())
	require.NoError(t, err)
	assert.NotContains(t, f.db.unread, "owner", "new notification drops the cached count")

	count, err = f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	f.db.unread["owner"] = 42
	count, err = f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count, "served from cache")
}

func TestUnreadCount_ConcurrentNotificationIsNotMasked(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	f.db.addUser("fan", "fiona")
	post := f.db.addPost("owner", "hello")

	// A like lands between the store count and the cache write.
	f.db.afterCountUnread = func() {
		f.db.afterCountUnread = nil
		_, err := f.posts.ToggleLikePost(ctx, "fan", post.ID.Hex())
		require.NoError(t, err)
	}

	count, err := f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NotContains(t, f.db.unread, "owner", "count taken before the invalidation is not cached")

	count, err = f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), f.db.unread["owner"])
}

func TestMarkAllRead_UnreadCountDropsToZero(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	for i := 0; i < 3; i++ {
		_, err := f.notifications.NotifyOnFollow(ctx, primitive.NewObjectID().Hex(), "owner")
		require.NoError(t, err)
	}

	count, err := f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	modified, err := f.notifications.MarkAllRead(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(3), modified)

	count, err = f.notifications.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteNotification_OnlyOwnNotifications(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("owner", "olivia")
	f.db.addUser("other", "otto")
	n, err := f.notifications.NotifyOnFollow(ctx, "other", "owner")
	require.NoError(t, err)

	err = f.notifications.DeleteNotification(ctx, "other", n.ID.Hex())
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.Len(t, f.db.notificationsTo("owner"), 1)

	require.NoError(t, f.notifications.DeleteNotification(ctx, "owner", n.ID.Hex()))
	assert.Empty(t, f.db.notificationsTo("owner"))

	err = f.notifications.DeleteNotification(ctx, "owner", n.ID.Hex())
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	err = f.notifications.DeleteNotification(ctx, "owner", "bogus")
	assert.ErrorIs(t, err, ErrInvalidID)
}
