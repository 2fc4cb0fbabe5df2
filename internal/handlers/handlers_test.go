package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/anonto42/chirpline/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

func newTestServer() (*echo.Echo, *echo.Group, echo.MiddlewareFunc) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zap.NewNop())
	return e, e.Group("/api"), middleware.JWTAuthMiddleware(testSecret)
}

// do sends a request as uid; an empty uid sends no Authorization header.
func do(t *testing.T, e *echo.Echo, method, path, body, uid string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if uid != "" {
		token, _, err := middleware.IssueSessionToken(testSecret, uid, "", time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return serve(e, req)
}

func newRequest(method, path, authHeader string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

type mockPostService struct {
	createPostFn     func(ctx context.Context, uid string, in models.CreatePostRequest) (*models.PostView, error)
	getPostFn        func(ctx context.Context, id string) (*models.PostView, error)
	listPostsFn      func(ctx context.Context, p pagination.Params) (*models.PostPage, error)
	listUserPostsFn  func(ctx context.Context, username string, p pagination.Params) (*models.PostPage, error)
	toggleLikePostFn func(ctx context.Context, uid, id string) (*models.LikeResult, error)
	deletePostFn     func(ctx context.Context, uid, id string) error
}

func (m *mockPostService) CreatePost(ctx context.Context, uid string, in models.CreatePostRequest) (*models.PostView, error) {
	return m.createPostFn(ctx, uid, in)
}

func (m *mockPostService) GetPost(ctx context.Context, id string) (*models.PostView, error) {
	return m.getPostFn(ctx, id)
}

func (m *mockPostService) ListPosts(ctx context.Context, p pagination.Params) (*models.PostPage, error) {
	return m.listPostsFn(ctx, p)
}

func (m *mockPostService) ListUserPosts(ctx context.Context, username string, p pagination.Params) (*models.PostPage, error) {
	return m.listUserPostsFn(ctx, username, p)
}

func (m *mockPostService) ToggleLikePost(ctx context.Context, uid, id string) (*models.LikeResult, error) {
	return m.toggleLikePostFn(ctx, uid, id)
}

func (m *mockPostService) DeletePost(ctx context.Context, uid, id string) error {
	return m.deletePostFn(ctx, uid, id)
}

type mockCommentService struct {
	listCommentsFn      func(ctx context.Context, postID string, p pagination.Params) (*models.CommentPage, error)
	createCommentFn     func(ctx context.Context, authorUID, postID string, in models.CreateCommentRequest) (*models.CommentView, error)
	replyToCommentFn    func(ctx context.Context, authorUID, parentID string, in models.CreateCommentRequest) (*models.CommentView, error)
	deleteCommentFn     func(ctx context.Context, requesterUID, commentID string) error
	toggleLikeCommentFn func(ctx context.Context, uid, commentID string) (*models.LikeResult, error)
}

func (m *mockCommentService) ListComments(ctx context.Context, postID string, p pagination.Params) (*models.CommentPage, error) {
	return m.listCommentsFn(ctx, postID, p)
}

func (m *mockCommentService) CreateComment(ctx context.Context, authorUID, postID string, in models.CreateCommentRequest) (*models.CommentView, error) {
	return m.createCommentFn(ctx, authorUID, postID, in)
}

func (m *mockCommentService) ReplyToComment(ctx context.Context, authorUID, parentID string, in models.CreateCommentRequest) (*models.CommentView, error) {
	return m.replyToCommentFn(ctx, authorUID, parentID, in)
}

func (m *mockCommentService) DeleteComment(ctx context.Context, requesterUID, commentID string) error {
	return m.deleteCommentFn(ctx, requesterUID, commentID)
}

func (m *mockCommentService) ToggleLikeComment(ctx context.Context, uid, commentID string) (*models.LikeResult, error) {
	return m.toggleLikeCommentFn(ctx, uid, commentID)
}

type mockUserService struct {
	syncUserFn      func(ctx context.Context, uid string) (*models.User, bool, error)
	currentUserFn   func(ctx context.Context, uid string) (*models.UserProfile, error)
	profileFn       func(ctx context.Context, username string) (*models.UserProfile, error)
	updateProfileFn func(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error)
	toggleFollowFn  func(ctx context.Context, uid, targetUID string) (*models.FollowResult, error)
	followersFn     func(ctx context.Context, username string) ([]models.UserSummary, error)
	followingFn     func(ctx context.Context, username string) ([]models.UserSummary, error)
}

func (m *mockUserService) SyncUser(ctx context.Context, uid string) (*models.User, bool, error) {
	return m.syncUserFn(ctx, uid)
}

func (m *mockUserService) CurrentUser(ctx context.Context, uid string) (*models.UserProfile, error) {
	return m.currentUserFn(ctx, uid)
}

func (m *mockUserService) Profile(ctx context.Context, username string) (*models.UserProfile, error) {
	return m.profileFn(ctx, username)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error) {
	return m.updateProfileFn(ctx, uid, update)
}

func (m *mockUserService) ToggleFollow(ctx context.Context, uid, targetUID string) (*models.FollowResult, error) {
	return m.toggleFollowFn(ctx, uid, targetUID)
}

func (m *mockUserService) Followers(ctx context.Context, username string) ([]models.UserSummary, error) {
	return m.followersFn(ctx, username)
}

func (m *mockUserService) Following(ctx context.Context, username string) ([]models.UserSummary, error) {
	return m.followingFn(ctx, username)
}

type mockNotificationService struct {
	listNotificationsFn  func(ctx context.Context, uid string, p pagination.Params) (*models.NotificationPage, error)
	unreadCountFn        func(ctx context.Context, uid string) (int64, error)
	markAllReadFn        func(ctx context.Context, uid string) (int64, error)
	deleteNotificationFn func(ctx context.Context, uid, id string) error
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, uid string, p pagination.Params) (*models.NotificationPage, error) {
	return m.listNotificationsFn(ctx, uid, p)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	return m.unreadCountFn(ctx, uid)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	return m.markAllReadFn(ctx, uid)
}

func (m *mockNotificationService) DeleteNotification(ctx context.Context, uid, id string) error {
	return m.deleteNotificationFn(ctx, uid, id)
}
