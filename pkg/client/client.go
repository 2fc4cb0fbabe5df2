// Package client is a Go SDK for the chirpline API with a local query cache
// and optimistic mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
)

// Response types shared with the server.
type (
	User             = models.User
	UserProfile      = models.UserProfile
	UserSummary      = models.UserSummary
	ProfileUpdate    = models.ProfileUpdate
	Post             = models.PostView
	PostPage         = models.PostPage
	Comment          = models.CommentView
	CommentPage      = models.CommentPage
	NotificationPage = models.NotificationPage
	SearchResult     = models.SearchResult
	LikeResult       = models.LikeResult
	FollowResult     = models.FollowResult
)

// TokenSource supplies the bearer token for each request. An empty token
// sends the request anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// APIError is a non-2xx response decoded from the {"error": "..."} envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chirpline: %d %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err if it is an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client calls the REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a Client for the server at baseURL, e.g. "https://api.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Page selects a page of a list endpoint. Zero values use the server defaults.
type Page struct {
	Page  int
	Limit int
}

func (p Page) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

// LoginResult is the session issued by FirebaseLogin.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func (c *Client) FirebaseLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/firebase-login", nil, map[string]string{"idToken": idToken}, &out)
	return &out, err
}

// SyncUser creates the caller's profile if needed. created is true on 201.
func (c *Client) SyncUser(ctx context.Context) (user *User, created bool, err error) {
	var out struct {
		User *User `json:"user"`
	}
	status, err := c.doStatus(ctx, http.MethodPost, "/api/users/sync", nil, nil, &out)
	return out.User, status == http.StatusCreated, err
}

func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var out struct {
		User *UserProfile `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &out)
	return out.User, err
}

func (c *Client) Profile(ctx context.Context, username string) (*UserProfile, error) {
	var out struct {
		User *UserProfile `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/profile/"+url.PathEscape(username), nil, nil, &out)
	return out.User, err
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.do(ctx, http.MethodPut, "/api/users/profile", nil, update, &out)
	return out.User, err
}

func (c *Client) ToggleFollow(ctx context.Context, targetUID string) (*FollowResult, error) {
	var out FollowResult
	err := c.do(ctx, http.MethodPost, "/api/users/follow/"+url.PathEscape(targetUID), nil, nil, &out)
	return &out, err
}

func (c *Client) Followers(ctx context.Context, username string) ([]UserSummary, error) {
	return c.userList(ctx, "/api/users/"+url.PathEscape(username)+"/followers")
}

func (c *Client) Following(ctx context.Context, username string) ([]UserSummary, error) {
	return c.userList(ctx, "/api/users/"+url.PathEscape(username)+"/following")
}

func (c *Client) userList(ctx context.Context, path string) ([]UserSummary, error) {
	var out struct {
		Users []UserSummary `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out.Users, err
}

// PostInput is the body of CreatePost, CreateComment and ReplyToComment.
type PostInput struct {
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

func (c *Client) ListPosts(ctx context.Context, p Page) (*PostPage, error) {
	var out PostPage
	err := c.do(ctx, http.MethodGet, "/api/posts", p.values(), nil, &out)
	return &out, err
}

func (c *Client) UserPosts(ctx context.Context, username string, p Page) (*PostPage, error) {
	var out PostPage
	err := c.do(ctx, http.MethodGet, "/api/posts/user/"+url.PathEscape(username), p.values(), nil, &out)
	return &out, err
}

func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	var out struct {
		Post *Post `json:"post"`
	}
	err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID), nil, nil, &out)
	return out.Post, err
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	var out struct {
		Post *Post `json:"post"`
	}
	err := c.do(ctx, http.MethodPost, "/api/posts", nil, in, &out)
	return out.Post, err
}

func (c *Client) TogglePostLike(ctx context.Context, postID string) (*LikeResult, error) {
	var out LikeResult
	err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/like", nil, nil, &out)
	return &out, err
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(postID), nil, nil, nil)
}

func (c *Client) ListComments(ctx context.Context, postID string, p Page) (*CommentPage, error) {
	var out CommentPage
	err := c.do(ctx, http.MethodGet, "/api/comments/post/"+url.PathEscape(postID), p.values(), nil, &out)
	return &out, err
}

func (c *Client) CreateComment(ctx context.Context, postID string, in PostInput) (*Comment, error) {
	var out struct {
		Comment *Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPost, "/api/comments/post/"+url.PathEscape(postID), nil, in, &out)
	return out.Comment, err
}

func (c *Client) ReplyToComment(ctx context.Context, commentID string, in PostInput) (*Comment, error) {
	var out struct {
		Reply *Comment `json:"reply"`
	}
	err := c.do(ctx, http.MethodPost, "/api/comments/"+url.PathEscape(commentID)+"/reply", nil, in, &out)
	return out.Reply, err
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(commentID), nil, nil, nil)
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID string) (*LikeResult, error) {
	var out LikeResult
	err := c.do(ctx, http.MethodPost, "/api/comments/"+url.PathEscape(commentID)+"/like", nil, nil, &out)
	return &out, err
}

func (c *Client) Notifications(ctx context.Context, p Page) (*NotificationPage, error) {
	var out NotificationPage
	err := c.do(ctx, http.MethodGet, "/api/notifications", p.values(), nil, &out)
	return &out, err
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, nil, &out)
	return out.Count, err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/mark-read", nil, nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Search(ctx context.Context, query string, p Page) (*SearchResult, error) {
	v := p.values()
	v.Set("query", query)
	var out SearchResult
	err := c.do(ctx, http.MethodGet, "/api/search", v, nil, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.doStatus(ctx, method, path, query, body, out)
	return err
}

func (c *Client) doStatus(ctx context.Context, method, path string, query url.Values, body, out interface{}) (int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return 0, fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		return resp.StatusCode, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
