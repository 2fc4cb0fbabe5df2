package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PostService owns posts and post likes.
type PostService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	users    repositories.UserRepository
	notifier *NotificationService
	deletes  DeletePolicy
	logger   *zap.Logger
}

func NewPostService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	users repositories.UserRepository,
	notifier *NotificationService,
	deletes DeletePolicy,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		users:    users,
		notifier: notifier,
		deletes:  deletes,
		logger:   logger,
	}
}

func (s *PostService) CreatePost(ctx context.Context, uid string, in models.CreatePostRequest) (*models.PostView, error) {
	if isBlank(in.Content, in.Image) {
		return nil, ErrPostEmpty
	}
	author, err := requireUser(ctx, s.users, uid, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	post := &models.Post{UserID: author.UID, Content: in.Content, Image: in.Image}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &models.PostView{Post: *post, Author: author.ToSummary()}, nil
}

func (s *PostService) GetPost(ctx context.Context, rawID string) (*models.PostView, error) {
	id, err := parseObjectID(rawID)
	if err != nil {
		return nil, err
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	authors, err := loadAuthors(ctx, s.users, []string{post.UserID})
	if err != nil {
		return nil, err
	}
	return &models.PostView{Post: *post, Author: authors.get(post.UserID)}, nil
}

// ListPosts returns the global timeline, newest first.
func (s *PostService) ListPosts(ctx context.Context, p pagination.Params) (*models.PostPage, error) {
	return s.list(ctx, "", p)
}

// ListUserPosts returns the posts of the user with the given username, newest first.
func (s *PostService) ListUserPosts(ctx context.Context, username string, p pagination.Params) (*models.PostPage, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.list(ctx, user.UID, p)
}

func (s *PostService) list(ctx context.Context, uid string, p pagination.Params) (*models.PostPage, error) {
	posts, total, err := s.posts.ListPosts(ctx, uid, p.Skip(), int64(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	views, err := s.withAuthors(ctx, posts)
	if err != nil {
		return nil, err
	}

	meta := pagination.NewMeta(p, total)
	return &models.PostPage{
		Posts:      views,
		Page:       meta.Page,
		TotalPages: meta.TotalPages,
		Total:      meta.Total,
		HasMore:    meta.HasMore,
	}, nil
}

func (s *PostService) withAuthors(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	uids := make([]string, 0, len(posts))
	for _, p := range posts {
		uids = append(uids, p.UserID)
	}
	authors, err := loadAuthors(ctx, s.users, uids)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.PostView{Post: p, Author: authors.get(p.UserID)})
	}
	return views, nil
}

// ToggleLikePost likes the post for uid, or removes the like if present.
// A new like notifies the post owner.
func (s *PostService) ToggleLikePost(ctx context.Context, uid, rawID string) (*models.LikeResult, error) {
	id, err := parseObjectID(rawID)
	if err != nil {
		return nil, err
	}
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return nil, err
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	likes, liked, err := s.posts.ToggleLike(ctx, post.ID, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle post like: %w", err)
	}

	if liked {
		n, err := s.notifier.NotifyOnLike(ctx, uid, post.UserID, post.ID, nil)
		if err != nil {
			s.logger.Error("failed to notify post like", zap.String("post_id", post.ID.Hex()), zap.Error(err))
		}
		s.notifier.Committed(ctx, n)
	}

	return &models.LikeResult{Likes: likes, Liked: liked}, nil
}

// DeletePost deletes one of the requester's posts. Its comments are removed
// only when the delete policy cascades.
func (s *PostService) DeletePost(ctx context.Context, uid, rawID string) error {
	id, err := parseObjectID(rawID)
	if err != nil {
		return err
	}
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return err
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != uid {
		return ErrNotPostOwner
	}

	err = s.posts.DeletePost(ctx, post.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !s.deletes.CascadePostComments {
		return nil
	}

	// The post delete stands whether or not its comments follow.
	removed, err := s.comments.DeleteByPost(ctx, post.ID)
	if err != nil {
		s.logger.Error("failed to delete comments of deleted post", zap.String("post_id", post.ID.Hex()), zap.Error(err))
		return nil
	}
	s.logger.Info("deleted comments of deleted post", zap.String("post_id", post.ID.Hex()), zap.Int("count", len(removed)))
	return nil
}

func (s *PostService) getPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}
