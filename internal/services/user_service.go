package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.uber.org/zap"
)

// IdentityProvider resolves an authenticated subject into profile seed data.
type IdentityProvider interface {
	LookupIdentity(ctx context.Context, uid string) (*models.Identity, error)
}

// UserService owns local profiles and the follow graph.
type UserService struct {
	users    repositories.UserRepository
	follows  repositories.FollowRepository
	identity IdentityProvider
	notifier *NotificationService
	logger   *zap.Logger
}

func NewUserService(
	users repositories.UserRepository,
	follows repositories.FollowRepository,
	identity IdentityProvider,
	notifier *NotificationService,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:    users,
		follows:  follows,
		identity: identity,
		notifier: notifier,
		logger:   logger,
	}
}

// SyncUser makes sure uid has a local profile, creating it from the identity
// provider on first sight. created reports whether a row was inserted.
func (s *UserService) SyncUser(ctx context.Context, uid string) (user *models.User, created bool, err error) {
	existing, err := s.users.GetUserByUID(ctx, uid)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	if s.identity == nil {
		return nil, false, newError(ErrUnauthorized, "Identity provider unavailable")
	}
	id, err := s.identity.LookupIdentity(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("lookup identity: %w", err)
	}

	username, err := s.pickUsername(ctx, id)
	if err != nil {
		return nil, false, err
	}
	user = &models.User{
		UID:            uid,
		Username:       username,
		Email:          id.Email,
		FirstName:      id.FirstName,
		LastName:       id.LastName,
		ProfilePicture: id.ProfilePicture,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent sync of the same subject may have won the unique index.
		if existing, getErr := s.users.GetUserByUID(ctx, uid); getErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user synced", zap.String("uid", uid), zap.String("username", username))
	return user, true, nil
}

// pickUsername derives a username from the local part of the email address.
// A taken name gets a suffix from the subject id.
func (s *UserService) pickUsername(ctx context.Context, id *models.Identity) (string, error) {
	base, _, _ := strings.Cut(id.Email, "@")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = "user"
	}

	candidates := []string{base}
	suffix := strings.ToLower(id.UID)
	for _, n := range []int{6, 10, len(suffix)} {
		if n > len(suffix) {
			n = len(suffix)
		}
		candidates = append(candidates, base+"_"+suffix[:n])
	}

	for _, candidate := range candidates {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", newError(ErrConflict, "Username already taken")
}

// CurrentUser returns the caller's profile with both follow sets.
func (s *UserService) CurrentUser(ctx context.Context, uid string) (*models.UserProfile, error) {
	user, err := requireUser(ctx, s.users, uid, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

// Profile returns the public profile of username.
func (s *UserService) Profile(ctx context.Context, username string) (*models.UserProfile, error) {
	user, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

func (s *UserService) profile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	followers, err := s.follows.FollowerUIDs(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	following, err := s.follows.FollowingUIDs(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return &models.UserProfile{User: *user, Followers: followers, Following: following}, nil
}

// UpdateProfile applies the allow-listed fields of update.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error) {
	user, err := s.users.UpdateProfile(ctx, uid, update.Columns())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ToggleFollow follows targetUID, or unfollows when already following.
// A new follow notifies the target.
func (s *UserService) ToggleFollow(ctx context.Context, uid, targetUID string) (*models.FollowResult, error) {
	if uid == targetUID {
		return nil, ErrSelfFollow
	}
	if _, err := requireUser(ctx, s.users, uid, ErrUserNotFound); err != nil {
		return nil, err
	}
	if _, err := requireUser(ctx, s.users, targetUID, ErrUserNotFound); err != nil {
		return nil, err
	}

	following, err := s.follows.ToggleFollow(ctx, uid, targetUID)
	if err != nil {
		return nil, fmt.Errorf("toggle follow: %w", err)
	}

	if !following {
		return &models.FollowResult{Following: false, Message: "User unfollowed successfully"}, nil
	}

	// The edge lives in PostgreSQL and the notification in MongoDB, so they
	// cannot share a transaction. The follow stands even if this fails.
	n, err := s.notifier.NotifyOnFollow(ctx, uid, targetUID)
	if err != nil {
		s.logger.Error("failed to notify follow",
			zap.String("from", uid),
			zap.String("to", targetUID),
			zap.Error(err),
		)
	}
	s.notifier.Committed(ctx, n)

	return &models.FollowResult{Following: true, Message: "User followed successfully"}, nil
}

// Followers lists the users following username, oldest follow first.
func (s *UserService) Followers(ctx context.Context, username string) ([]models.UserSummary, error) {
	return s.related(ctx, username, s.follows.FollowerUIDs)
}

// Following lists the users username follows, oldest follow first.
func (s *UserService) Following(ctx context.Context, username string) ([]models.UserSummary, error) {
	return s.related(ctx, username, s.follows.FollowingUIDs)
}

func (s *UserService) related(ctx context.Context, username string, edges func(context.Context, string) ([]string, error)) ([]models.UserSummary, error) {
	user, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	uids, err := edges(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("list follow edges: %w", err)
	}

	found, err := s.users.GetUsersByUIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byUID := make(map[string]models.UserSummary, len(found))
	for i := range found {
		byUID[found[i].UID] = found[i].ToSummary()
	}

	users := make([]models.UserSummary, 0, len(uids))
	for _, uid := range uids {
		if u, ok := byUID[uid]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *UserService) byUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
