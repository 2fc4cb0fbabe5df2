package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/chirpline/backend/internal/cache"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NotificationService writes notifications when events happen (fan-out on
// write) and serves each recipient's inbox.
//
// The Notify* methods only insert. They run inside the caller's unit of work,
// and the caller must pass the result to Committed once that work is durable
// so the recipient's cached unread count is dropped.
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	posts         repositories.PostRepository
	comments      repositories.CommentRepository
	unread        cache.UnreadCache
	policy        NotificationPolicy
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	unread cache.UnreadCache,
	policy NotificationPolicy,
	logger *zap.Logger,
) *NotificationService {
	if unread == nil {
		unread = cache.Noop{}
	}
	return &NotificationService{
		notifications: notifications,
		users:         users,
		posts:         posts,
		comments:      comments,
		unread:        unread,
		policy:        policy,
		logger:        logger,
	}
}

// NotifyOnFollow records that from started following to.
// It returns nil without writing when from == to or the policy disables it.
func (s *NotificationService) NotifyOnFollow(ctx context.Context, from, to string) (*models.Notification, error) {
	if !s.policy.OnFollow {
		return nil, nil
	}
	return s.create(ctx, &models.Notification{From: from, To: to, Type: models.NotificationFollow})
}

// NotifyOnComment records a comment on to's post, or a reply to to's comment.
func (s *NotificationService) NotifyOnComment(ctx context.Context, from, to string, postID, commentID primitive.ObjectID, reply bool) (*models.Notification, error) {
	if (reply && !s.policy.OnCommentReply) || (!reply && !s.policy.OnPostComment) {
		return nil, nil
	}
	return s.create(ctx, &models.Notification{
		From:      from,
		To:        to,
		Type:      models.NotificationComment,
		PostID:    &postID,
		CommentID: &commentID,
	})
}

// NotifyOnLike records a like of to's post, or of to's comment when commentID is set.
func (s *NotificationService) NotifyOnLike(ctx context.Context, from, to string, postID primitive.ObjectID, commentID *primitive.ObjectID) (*models.Notification, error) {
	if (commentID != nil && !s.policy.OnCommentLike) || (commentID == nil && !s.policy.OnPostLike) {
		return nil, nil
	}
	return s.create(ctx, &models.Notification{
		From:      from,
		To:        to,
		Type:      models.NotificationLike,
		PostID:    &postID,
		CommentID: commentID,
	})
}

func (s *NotificationService) create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.From == n.To {
		return nil, nil
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create %s notification: %w", n.Type, err)
	}
	return n, nil
}

// Committed drops the cached unread count of n's recipient. n may be nil.
func (s *NotificationService) Committed(ctx context.Context, n *models.Notification) {
	if n == nil {
		return
	}
	s.invalidate(ctx, n.To)
}

func (s *NotificationService) invalidate(ctx context.Context, uid string) {
	if err := s.unread.Invalidate(ctx, uid); err != nil {
		s.logger.Warn("failed to invalidate unread count", zap.String("uid", uid), zap.Error(err))
	}
}

// ListNotifications returns one page of uid's notifications, newest first,
// with the actor, post and comment expanded.
func (s *NotificationService) ListNotifications(ctx context.Context, uid string, p pagination.Params) (*models.NotificationPage, error) {
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return nil, err
	}

	notifications, total, err := s.notifications.ListByRecipient(ctx, uid, p.Skip(), int64(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	views, err := s.expand(ctx, notifications)
	if err != nil {
		return nil, err
	}

	meta := pagination.NewMeta(p, total)
	return &models.NotificationPage{
		Notifications: views,
		Page:          meta.Page,
		TotalPages:    meta.TotalPages,
		Total:         meta.Total,
		HasMore:       meta.HasMore,
	}, nil
}

// expand resolves every reference of a page with one query per collection,
// run concurrently. Deleted references expand to nil.
func (s *NotificationService) expand(ctx context.Context, notifications []models.Notification) ([]models.NotificationView, error) {
	var (
		fromUIDs   []string
		postIDs    []primitive.ObjectID
		commentIDs []primitive.ObjectID
	)
	for _, n := range notifications {
		fromUIDs = append(fromUIDs, n.From)
		if n.PostID != nil {
			postIDs = append(postIDs, *n.PostID)
		}
		if n.CommentID != nil {
			commentIDs = append(commentIDs, *n.CommentID)
		}
	}

	var (
		authors  authorSet
		posts    = map[primitive.ObjectID]*models.PostSummary{}
		comments = map[primitive.ObjectID]*models.CommentSummary{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authors, err = loadAuthors(gctx, s.users, fromUIDs)
		return err
	})
	g.Go(func() error {
		found, err := s.posts.GetPostsByIDs(gctx, postIDs)
		if err != nil {
			return fmt.Errorf("load notification posts: %w", err)
		}
		for _, p := range found {
			posts[p.ID] = &models.PostSummary{ID: p.ID, Content: p.Content, Image: p.Image}
		}
		return nil
	})
	g.Go(func() error {
		found, err := s.comments.GetCommentsByIDs(gctx, commentIDs)
		if err != nil {
			return fmt.Errorf("load notification comments: %w", err)
		}
		for _, c := range found {
			comments[c.ID] = &models.CommentSummary{ID: c.ID, Content: c.Content}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]models.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		view := models.NotificationView{
			ID:        n.ID,
			From:      authors.get(n.From),
			To:        n.To,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
		if n.PostID != nil {
			view.Post = posts[*n.PostID]
		}
		if n.CommentID != nil {
			view.Comment = comments[*n.CommentID]
		}
		views = append(views, view)
	}
	return views, nil
}

// UnreadCount returns the number of unread notifications of uid. The count is
// served from the cache when present; cache failures fall back to the store.
// A count is only cached if no invalidation of uid happened while it was taken.
func (s *NotificationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return 0, err
	}

	count, found, err := s.unread.Get(ctx, uid)
	if err != nil {
		s.logger.Warn("unread cache read failed", zap.String("uid", uid), zap.Error(err))
	}
	if found {
		return count, nil
	}

	gen, genErr := s.unread.Generation(ctx, uid)
	if genErr != nil {
		s.logger.Warn("unread cache read failed", zap.String("uid", uid), zap.Error(genErr))
	}

	count, err = s.notifications.CountUnread(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	if genErr == nil {
		if _, err := s.unread.SetIfGeneration(ctx, uid, count, gen); err != nil {
			s.logger.Warn("unread cache write failed", zap.String("uid", uid), zap.Error(err))
		}
	}
	return count, nil
}

// MarkAllRead flags every notification of uid as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return 0, err
	}

	modified, err := s.notifications.MarkAllRead(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	s.invalidate(ctx, uid)
	return modified, nil
}

// DeleteNotification deletes one of uid's own notifications. A notification
// addressed to someone else is reported as not found.
func (s *NotificationService) DeleteNotification(ctx context.Context, uid, rawID string) error {
	id, err := parseObjectID(rawID)
	if err != nil {
		return err
	}
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return err
	}

	err = s.notifications.DeleteForRecipient(ctx, id, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	s.invalidate(ctx, uid)
	return nil
}
