package client

import (
	"context"
	"sync"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a read shared by concurrent callers.
const fetchTimeout = 30 * time.Second

var (
	unreadKey        = Key{Kind: KindUnread}
	notificationsKey = Key{Kind: KindNotifications}
)

// Store serves queries from a QueryCache and applies mutations optimistically:
// the cached value changes before the request is sent, is merged with the
// server's answer on success, and is rolled back on failure.
//
// Comments and notifications cache their first page only; other pages can be
// fetched through the Client directly.
type Store struct {
	api   *Client
	cache *QueryCache
	self  string

	// OnError receives every failed mutation after its local change has been
	// rolled back.
	OnError func(op string, err error)

	group singleflight.Group

	mu       sync.Mutex
	versions map[Key]uint64
}

// NewStore returns a Store acting as selfUID, the subject of api's token.
func NewStore(api *Client, cache *QueryCache, selfUID string) *Store {
	return &Store{
		api:      api,
		cache:    cache,
		self:     selfUID,
		versions: make(map[Key]uint64),
	}
}

// Invalidate drops keys and discards any in-flight read of them.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked(keys...)
}

func (s *Store) Post(ctx context.Context, postID string) (*Post, error) {
	return query(ctx, s, Key{Kind: KindPost, ID: postID}, func(ctx context.Context) (*Post, error) {
		return s.api.GetPost(ctx, postID)
	})
}

func (s *Store) Comments(ctx context.Context, postID string) (*CommentPage, error) {
	return query(ctx, s, Key{Kind: KindComments, ID: postID}, func(ctx context.Context) (*CommentPage, error) {
		return s.api.ListComments(ctx, postID, Page{})
	})
}

func (s *Store) Profile(ctx context.Context, username string) (*UserProfile, error) {
	return query(ctx, s, Key{Kind: KindProfile, ID: username}, func(ctx context.Context) (*UserProfile, error) {
		return s.api.Profile(ctx, username)
	})
}

func (s *Store) Notifications(ctx context.Context) (*NotificationPage, error) {
	return query(ctx, s, notificationsKey, func(ctx context.Context) (*NotificationPage, error) {
		return s.api.Notifications(ctx, Page{})
	})
}

func (s *Store) UnreadCount(ctx context.Context) (int64, error) {
	return query(ctx, s, unreadKey, s.api.UnreadCount)
}

// TogglePostLike flips the caller's like on a cached post.
func (s *Store) TogglePostLike(ctx context.Context, postID string) (*LikeResult, error) {
	return mutate(ctx, s, mutation[*Post, *LikeResult]{
		op:  "toggle post like",
		key: Key{Kind: KindPost, ID: postID},
		apply: func(cur *Post) *Post {
			next := *cur
			next.Likes = toggleMember(cur.Likes, s.self)
			return &next
		},
		send: func(ctx context.Context) (*LikeResult, error) {
			return s.api.TogglePostLike(ctx, postID)
		},
		reconcile: func(cur *Post, res *LikeResult) *Post {
			next := *cur
			next.Likes = res.Likes
			return &next
		},
	})
}

// ToggleCommentLike flips the caller's like on a comment or reply in the
// cached first page of postID's comments.
func (s *Store) ToggleCommentLike(ctx context.Context, postID, commentID string) (*LikeResult, error) {
	id, _ := primitive.ObjectIDFromHex(commentID)
	return mutate(ctx, s, mutation[*CommentPage, *LikeResult]{
		op:  "toggle comment like",
		key: Key{Kind: KindComments, ID: postID},
		apply: func(cur *CommentPage) *CommentPage {
			return editComment(cur, id, func(c *Comment) {
				c.Likes = toggleMember(c.Likes, s.self)
			})
		},
		send: func(ctx context.Context) (*LikeResult, error) {
			return s.api.ToggleCommentLike(ctx, commentID)
		},
		reconcile: func(cur *CommentPage, res *LikeResult) *CommentPage {
			return editComment(cur, id, func(c *Comment) {
				c.Likes = res.Likes
			})
		},
	})
}

// ToggleFollow follows or unfollows targetUID, whose profile is cached under username.
func (s *Store) ToggleFollow(ctx context.Context, username, targetUID string) (*FollowResult, error) {
	return mutate(ctx, s, mutation[*UserProfile, *FollowResult]{
		op:  "toggle follow",
		key: Key{Kind: KindProfile, ID: username},
		apply: func(cur *UserProfile) *UserProfile {
			next := *cur
			next.Followers = toggleMember(cur.Followers, s.self)
			return &next
		},
		send: func(ctx context.Context) (*FollowResult, error) {
			return s.api.ToggleFollow(ctx, targetUID)
		},
		reconcile: func(cur *UserProfile, res *FollowResult) *UserProfile {
			next := *cur
			next.Followers = setMember(cur.Followers, s.self, res.Following)
			return &next
		},
	})
}

// AddComment comments on postID, or replies to replyTo when it is set. A
// placeholder shows up in the cached comments until the server answers.
func (s *Store) AddComment(ctx context.Context, postID, replyTo string, in PostInput) (*Comment, error) {
	postOID, _ := primitive.ObjectIDFromHex(postID)
	parentOID, _ := primitive.ObjectIDFromHex(replyTo)
	placeholder := Comment{
		Comment: models.Comment{
			ID:        primitive.NewObjectID(),
			PostID:    postOID,
			UserID:    s.self,
			Content:   in.Content,
			Image:     in.Image,
			Likes:     []string{},
			CreatedAt: time.Now(),
		},
		Replies: []Comment{},
	}

	return mutate(ctx, s, mutation[*CommentPage, *Comment]{
		op:  "add comment",
		key: Key{Kind: KindComments, ID: postID},
		apply: func(cur *CommentPage) *CommentPage {
			if replyTo == "" {
				next := clonePage(cur)
				next.Comments = append([]Comment{placeholder}, next.Comments...)
				next.Total++
				return next
			}
			return addReply(cur, parentOID, placeholder)
		},
		send: func(ctx context.Context) (*Comment, error) {
			if replyTo == "" {
				return s.api.CreateComment(ctx, postID, in)
			}
			return s.api.ReplyToComment(ctx, replyTo, in)
		},
		reconcile: func(cur *CommentPage, res *Comment) *CommentPage {
			if res == nil {
				return cur
			}
			return editComment(cur, placeholder.ID, func(c *Comment) {
				*c = *res
				if c.Replies == nil {
					c.Replies = []Comment{}
				}
			})
		},
		invalidate: []Key{{Kind: KindPost, ID: postID}},
	})
}

// MarkAllRead zeroes the cached unread count.
func (s *Store) MarkAllRead(ctx context.Context) error {
	_, err := mutate(ctx, s, mutation[int64, struct{}]{
		op:  "mark all read",
		key: unreadKey,
		apply: func(int64) int64 {
			return 0
		},
		send: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.MarkAllRead(ctx)
		},
		reconcile: func(int64, struct{}) int64 {
			return 0
		},
		invalidate: []Key{notificationsKey},
	})
	return err
}

// DeleteNotification hides id from the cached notifications until the server
// answers. The page counters are left alone and refetched once it settles.
func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	_, err := mutate(ctx, s, mutation[*NotificationPage, struct{}]{
		op:  "delete notification",
		key: notificationsKey,
		apply: func(cur *NotificationPage) *NotificationPage {
			next := *cur
			next.Notifications = make([]models.NotificationView, 0, len(cur.Notifications))
			for _, n := range cur.Notifications {
				if n.ID.Hex() != id {
					next.Notifications = append(next.Notifications, n)
				}
			}
			return &next
		},
		send: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteNotification(ctx, id)
		},
		reconcile: func(cur *NotificationPage, _ struct{}) *NotificationPage {
			return cur
		},
		invalidate: []Key{unreadKey, notificationsKey},
	})
	return err
}

// query reads key through the cache. Concurrent misses share one request,
// and a result is only cached if no mutation or invalidation touched key
// while it was in flight.
//
// The shared request outlives any single caller's cancellation and is bounded
// by fetchTimeout instead. Each caller still returns as soon as its own ctx
// is done.
func query[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := cached[T](s.cache, key); ok {
		return v, nil
	}

	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		s.mu.Lock()
		version := s.versions[key]
		s.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.versions[key] == version {
			s.cache.Set(key, v)
		}
		s.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

type mutation[T any, R any] struct {
	op  string
	key Key
	// apply and reconcile only run when key is cached. They must return a
	// new value rather than modify cur.
	apply     func(cur T) T
	send      func(ctx context.Context) (R, error)
	reconcile func(cur T, res R) T
	// invalidate is dropped once the request settles either way.
	invalidate []Key
}

func mutate[T any, R any](ctx context.Context, s *Store, m mutation[T, R]) (R, error) {
	s.mu.Lock()
	prev, had := cached[T](s.cache, m.key)
	s.versions[m.key]++
	version := s.versions[m.key]
	if had {
		s.cache.Set(m.key, m.apply(prev))
	}
	s.mu.Unlock()

	res, err := m.send(ctx)

	s.mu.Lock()
	latest := s.versions[m.key] == version
	switch {
	case err != nil && latest:
		if had {
			s.cache.Set(m.key, prev)
		}
	case !latest:
		// A newer change was built on our optimistic value. That value is
		// never reconciled, so the cached result cannot be trusted.
		s.invalidateLocked(m.key)
	default:
		if cur, ok := cached[T](s.cache, m.key); ok {
			s.cache.Set(m.key, m.reconcile(cur, res))
		}
	}
	s.invalidateLocked(m.invalidate...)
	s.mu.Unlock()

	if err != nil && s.OnError != nil {
		s.OnError(m.op, err)
	}
	return res, err
}

func (s *Store) invalidateLocked(keys ...Key) {
	for _, key := range keys {
		s.versions[key]++
	}
	s.cache.Invalidate(keys...)
}

func toggleMember(set []string, v string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, member := range set {
		if member == v {
			found = true
			continue
		}
		out = append(out, member)
	}
	if !found {
		out = append(out, v)
	}
	return out
}

func setMember(set []string, v string, member bool) []string {
	out := make([]string, 0, len(set)+1)
	for _, m := range set {
		if m != v {
			out = append(out, m)
		}
	}
	if member {
		out = append(out, v)
	}
	return out
}

func clonePage(page *CommentPage) *CommentPage {
	next := *page
	next.Comments = make([]Comment, len(page.Comments))
	for i, c := range page.Comments {
		c.Replies = append([]Comment(nil), c.Replies...)
		next.Comments[i] = c
	}
	return &next
}

// editComment returns a copy of page with fn applied to the comment or reply id.
func editComment(page *CommentPage, id primitive.ObjectID, fn func(c *Comment)) *CommentPage {
	next := clonePage(page)
	for i := range next.Comments {
		top := &next.Comments[i]
		if top.ID == id {
			fn(top)
			return next
		}
		for j := range top.Replies {
			if top.Replies[j].ID == id {
				fn(&top.Replies[j])
				return next
			}
		}
	}
	return page
}

// addReply appends reply under the top-level comment that is, or contains, parentID.
func addReply(page *CommentPage, parentID primitive.ObjectID, reply Comment) *CommentPage {
	next := clonePage(page)
	for i := range next.Comments {
		top := &next.Comments[i]
		match := top.ID == parentID
		for _, r := range top.Replies {
			if r.ID == parentID {
				match = true
			}
		}
		if match {
			topID := top.ID
			reply.ParentID = &topID
			top.Replies = append(top.Replies, reply)
			return next
		}
	}
	return page
}
