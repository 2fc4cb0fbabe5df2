package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CommentService owns comments, replies and comment likes.
type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	users    repositories.UserRepository
	notifier *NotificationService
	tx       repositories.Transactor
	deletes  DeletePolicy
	logger   *zap.Logger
}

func NewCommentService(
	comments repositories.CommentRepository,
	posts repositories.PostRepository,
	users repositories.UserRepository,
	notifier *NotificationService,
	tx repositories.Transactor,
	deletes DeletePolicy,
	logger *zap.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		notifier: notifier,
		tx:       tx,
		deletes:  deletes,
		logger:   logger,
	}
}

// ListComments returns one page of a post's top-level comments, newest first,
// each with its replies (oldest first) and every author expanded. A post
// without comments yields an empty page.
func (s *CommentService) ListComments(ctx context.Context, rawPostID string, p pagination.Params) (*models.CommentPage, error) {
	postID, err := parseObjectID(rawPostID)
	if err != nil {
		return nil, err
	}

	total, err := s.comments.CountTopLevel(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	comments, err := s.comments.ListTopLevel(ctx, postID, p.Skip(), int64(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var replyIDs []primitive.ObjectID
	for _, c := range comments {
		replyIDs = append(replyIDs, c.Replies...)
	}
	replies, err := s.comments.GetCommentsByIDs(ctx, replyIDs)
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	repliesByID := make(map[primitive.ObjectID]models.Comment, len(replies))
	uids := make([]string, 0, len(comments)+len(replies))
	for _, r := range replies {
		repliesByID[r.ID] = r
		uids = append(uids, r.UserID)
	}
	for _, c := range comments {
		uids = append(uids, c.UserID)
	}

	authors, err := loadAuthors(ctx, s.users, uids)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		view := models.CommentView{Comment: c, Author: authors.get(c.UserID), Replies: []models.CommentView{}}
		for _, id := range c.Replies {
			if r, ok := repliesByID[id]; ok {
				view.Replies = append(view.Replies, models.CommentView{
					Comment: r,
					Author:  authors.get(r.UserID),
					Replies: []models.CommentView{},
				})
			}
		}
		views = append(views, view)
	}

	meta := pagination.NewMeta(p, total)
	return &models.CommentPage{
		Comments:   views,
		Page:       meta.Page,
		TotalPages: meta.TotalPages,
		Total:      meta.Total,
		HasMore:    meta.HasMore,
	}, nil
}

// CreateComment adds a top-level comment to a post and notifies the post owner.
// The comment, the post's back-reference and the notification are written as
// one unit of work.
func (s *CommentService) CreateComment(ctx context.Context, authorUID, rawPostID string, in models.CreateCommentRequest) (*models.CommentView, error) {
	if isBlank(in.Content, in.Image) {
		return nil, ErrCommentEmpty
	}
	postID, err := parseObjectID(rawPostID)
	if err != nil {
		return nil, err
	}

	author, err := requireUser(ctx, s.users, authorUID, ErrUserOrPostNotFound)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserOrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	var (
		comment      *models.Comment
		notification *models.Notification
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, undo repositories.UndoLog) error {
		comment = &models.Comment{
			PostID:  post.ID,
			UserID:  author.UID,
			Content: in.Content,
			Image:   in.Image,
		}
		if err := s.comments.CreateComment(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		undo.Defer(func(ctx context.Context) error { return s.comments.DeleteComment(ctx, comment.ID) })

		if err := s.posts.AddComment(ctx, post.ID, comment.ID); err != nil {
			return fmt.Errorf("attach comment to post: %w", err)
		}
		undo.Defer(func(ctx context.Context) error { return s.posts.RemoveComment(ctx, post.ID, comment.ID) })

		var err error
		notification, err = s.notifier.NotifyOnComment(ctx, author.UID, post.UserID, post.ID, comment.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Committed(ctx, notification)

	s.logger.Info("comment created",
		zap.String("comment_id", comment.ID.Hex()),
		zap.String("post_id", post.ID.Hex()),
		zap.String("author", author.UID),
	)
	return &models.CommentView{Comment: *comment, Author: author.ToSummary(), Replies: []models.CommentView{}}, nil
}

// ReplyToComment adds a reply under a comment. Replies nest one level: a reply
// to a reply is attached to the top-level comment it belongs to.
func (s *CommentService) ReplyToComment(ctx context.Context, authorUID, rawParentID string, in models.CreateCommentRequest) (*models.CommentView, error) {
	if isBlank(in.Content, in.Image) {
		return nil, ErrReplyEmpty
	}
	parentID, err := parseObjectID(rawParentID)
	if err != nil {
		return nil, err
	}

	parent, err := s.getComment(ctx, parentID, ErrParentNotFound)
	if err != nil {
		return nil, err
	}
	author, err := requireUser(ctx, s.users, authorUID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	root := parent
	if parent.IsReply() {
		root, err = s.getComment(ctx, *parent.ParentID, ErrParentNotFound)
		if err != nil {
			return nil, err
		}
	}

	var (
		reply        *models.Comment
		notification *models.Notification
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, undo repositories.UndoLog) error {
		reply = &models.Comment{
			PostID:   root.PostID,
			ParentID: &root.ID,
			UserID:   author.UID,
			Content:  in.Content,
			Image:    in.Image,
		}
		if err := s.comments.CreateComment(ctx, reply); err != nil {
			return fmt.Errorf("create reply: %w", err)
		}
		undo.Defer(func(ctx context.Context) error { return s.comments.DeleteComment(ctx, reply.ID) })

		if err := s.comments.AddReply(ctx, root.ID, reply.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrParentNotFound
			}
			return fmt.Errorf("attach reply: %w", err)
		}
		undo.Defer(func(ctx context.Context) error { return s.comments.RemoveReply(ctx, root.ID, reply.ID) })

		var err error
		notification, err = s.notifier.NotifyOnComment(ctx, author.UID, parent.UserID, root.PostID, reply.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Committed(ctx, notification)

	return &models.CommentView{Comment: *reply, Author: author.ToSummary(), Replies: []models.CommentView{}}, nil
}

// DeleteComment deletes one of the requester's comments and detaches it from
// its post (top-level) or parent comment (reply).
func (s *CommentService) DeleteComment(ctx context.Context, requesterUID, rawCommentID string) error {
	commentID, err := parseObjectID(rawCommentID)
	if err != nil {
		return err
	}

	requester, err := requireUser(ctx, s.users, requesterUID, ErrUserOrCommentNotFound)
	if err != nil {
		return err
	}
	comment, err := s.getComment(ctx, commentID, ErrUserOrCommentNotFound)
	if err != nil {
		return err
	}
	if comment.UserID != requester.UID {
		return ErrNotCommentOwner
	}

	var cascaded []primitive.ObjectID
	if s.deletes.CascadeReplies && !comment.IsReply() {
		cascaded = comment.Replies
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, undo repositories.UndoLog) error {
		if comment.IsReply() {
			parentID := *comment.ParentID
			if err := ignoreNotFound(s.comments.RemoveReply(ctx, parentID, comment.ID)); err != nil {
				return fmt.Errorf("detach reply: %w", err)
			}
			undo.Defer(func(ctx context.Context) error { return s.comments.AddReply(ctx, parentID, comment.ID) })
		} else {
			if err := ignoreNotFound(s.posts.RemoveComment(ctx, comment.PostID, comment.ID)); err != nil {
				return fmt.Errorf("detach comment: %w", err)
			}
			undo.Defer(func(ctx context.Context) error { return s.posts.AddComment(ctx, comment.PostID, comment.ID) })
		}

		if err := s.comments.DeleteComment(ctx, comment.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Replies are removed after the delete is durable; the delete stands
	// whether or not they follow.
	if _, err := s.comments.DeleteByIDs(ctx, cascaded); err != nil {
		s.logger.Error("failed to delete replies of deleted comment",
			zap.String("comment_id", comment.ID.Hex()),
			zap.Error(err),
		)
	}

	s.logger.Info("comment deleted",
		zap.String("comment_id", comment.ID.Hex()),
		zap.Int("cascaded_replies", len(cascaded)),
	)
	return nil
}

// ToggleLikeComment likes the comment for uid, or removes the like if present.
func (s *CommentService) ToggleLikeComment(ctx context.Context, uid, rawCommentID string) (*models.LikeResult, error) {
	commentID, err := parseObjectID(rawCommentID)
	if err != nil {
		return nil, err
	}
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return nil, err
	}

	comment, err := s.getComment(ctx, commentID, ErrCommentNotFound)
	if err != nil {
		return nil, err
	}

	likes, liked, err := s.comments.ToggleLike(ctx, comment.ID, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle comment like: %w", err)
	}

	if liked {
		n, err := s.notifier.NotifyOnLike(ctx, uid, comment.UserID, comment.PostID, &comment.ID)
		if err != nil {
			// The like is already stored; a lost notification is not worth failing it.
			s.logger.Error("failed to notify comment like", zap.String("comment_id", comment.ID.Hex()), zap.Error(err))
		}
		s.notifier.Committed(ctx, n)
	}

	return &models.LikeResult{Likes: likes, Liked: liked}, nil
}

func (s *CommentService) getComment(ctx context.Context, id primitive.ObjectID, notFound error) (*models.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return comment, nil
}

func isBlank(content, image string) bool {
	return strings.TrimSpace(content) == "" && strings.TrimSpace(image) == ""
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	return err
}
