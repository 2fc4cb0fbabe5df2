package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memDB is an in-memory stand-in for both stores. Every adapter below shares it.
type memDB struct {
	mu sync.Mutex

	now           time.Time
	users         map[string]*models.User
	follows       []models.Follow
	posts         map[primitive.ObjectID]*models.Post
	comments      map[primitive.ObjectID]*models.Comment
	notifications map[primitive.ObjectID]*models.Notification
	unread        map[string]int64
	unreadGens    map[string]int64

	// afterCountUnread runs once CountUnread has taken its count.
	afterCountUnread func()

	createNotificationErr error
	addCommentErr         error
	cascadeErr            error
	unreadInvalidations   int
}

func newMemDB() *memDB {
	return &memDB{
		now:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:         map[string]*models.User{},
		posts:         map[primitive.ObjectID]*models.Post{},
		comments:      map[primitive.ObjectID]*models.Comment{},
		notifications: map[primitive.ObjectID]*models.Notification{},
		unread:        map[string]int64{},
		unreadGens:    map[string]int64{},
	}
}

func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

func (db *memDB) addUser(uid, username string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &models.User{ID: uint(len(db.users) + 1), UID: uid, Username: username, FirstName: strings.ToUpper(username[:1]) + username[1:]}
	db.users[uid] = u
	return u
}

func (db *memDB) addPost(owner, content string) *models.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.tick()
	p := &models.Post{
		ID:        primitive.NewObjectID(),
		UserID:    owner,
		Content:   content,
		Likes:     []string{},
		Comments:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.posts[p.ID] = p
	return p
}

func (db *memDB) post(id primitive.ObjectID) models.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.posts[id]
}

func (db *memDB) comment(id primitive.ObjectID) (models.Comment, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.comments[id]
	if !ok {
		return models.Comment{}, false
	}
	return *c, true
}

func (db *memDB) notificationsTo(uid string) []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Notification
	for _, n := range db.notifications {
		if n.To == uid {
			out = append(out, *n)
		}
	}
	return out
}

func newTestLogger() *zap.Logger { return zap.NewNop() }

// compensating runs units of work the way production does without a replica set.
func compensating() repositories.Transactor {
	return repositories.NewMongoTransactor(nil, false, newTestLogger())
}

type fakeUsers struct{ *memDB }

func (f fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uint(len(f.users) + 1)
	f.users[user.UID] = user
	return nil
}

func (f fakeUsers) GetUserByUID(_ context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[uid]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetUsersByUIDs(_ context.Context, uids []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, uid := range uids {
		if u, ok := f.users[uid]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f fakeUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetUserByUsername(ctx, username)
	return err == nil, nil
}

func (f fakeUsers) UpdateProfile(_ context.Context, uid string, columns map[string]interface{}) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	for col, v := range columns {
		s := v.(string)
		switch col {
		case "first_name":
			u.FirstName = s
		case "last_name":
			u.LastName = s
		case "bio":
			u.Bio = s
		case "location":
			u.Location = s
		case "profile_picture":
			u.ProfilePicture = s
		case "banner_image":
			u.BannerImage = s
		}
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) SearchUsers(_ context.Context, query string, offset, limit int) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	var matched []models.User
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) {
			matched = append(matched, *u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

type fakeFollows struct{ *memDB }

func (f fakeFollows) ToggleFollow(_ context.Context, followerUID, followingUID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.follows {
		if e.FollowerUID == followerUID && e.FollowingUID == followingUID {
			f.follows = append(f.follows[:i], f.follows[i+1:]...)
			return false, nil
		}
	}
	f.follows = append(f.follows, models.Follow{FollowerUID: followerUID, FollowingUID: followingUID, CreatedAt: f.tick()})
	return true, nil
}

func (f fakeFollows) IsFollowing(_ context.Context, followerUID, followingUID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.follows {
		if e.FollowerUID == followerUID && e.FollowingUID == followingUID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeFollows) FollowerUIDs(_ context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, e := range f.follows {
		if e.FollowingUID == uid {
			out = append(out, e.FollowerUID)
		}
	}
	return out, nil
}

func (f fakeFollows) FollowingUIDs(_ context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, e := range f.follows {
		if e.FollowerUID == uid {
			out = append(out, e.FollowingUID)
		}
	}
	return out, nil
}

type fakePosts struct{ *memDB }

func (f fakePosts) CreatePost(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	post.ID = primitive.NewObjectID()
	post.CreatedAt, post.UpdatedAt = now, now
	post.Likes, post.Comments = []string{}, []primitive.ObjectID{}
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f fakePosts) GetPostByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakePosts) GetPostsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Post
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f fakePosts) ListPosts(_ context.Context, userID string, skip, limit int64) ([]models.Post, int64, error) {
	return f.page(func(p *models.Post) bool { return userID == "" || p.UserID == userID }, skip, limit)
}

func (f fakePosts) SearchPosts(_ context.Context, pattern string, skip, limit int64) ([]models.Post, int64, error) {
	return f.page(func(p *models.Post) bool {
		return strings.Contains(strings.ToLower(p.Content), strings.ToLower(unquoteMeta(pattern)))
	}, skip, limit)
}

func (f fakePosts) page(match func(*models.Post) bool, skip, limit int64) ([]models.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Post
	for _, p := range f.posts {
		if match(p) {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, skip, limit), int64(len(all)), nil
}

func (f fakePosts) DeletePost(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f fakePosts) AddComment(_ context.Context, postID, commentID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addCommentErr != nil {
		return f.addCommentErr
	}
	p, ok := f.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Comments = append(p.Comments, commentID)
	return nil
}

func (f fakePosts) RemoveComment(_ context.Context, postID, commentID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Comments = removeID(p.Comments, commentID)
	return nil
}

func (f fakePosts) ToggleLike(_ context.Context, postID primitive.ObjectID, userID string) ([]string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	var liked bool
	p.Likes, liked = toggle(p.Likes, userID)
	return append([]string{}, p.Likes...), liked, nil
}

type fakeComments struct{ *memDB }

func (f fakeComments) CreateComment(_ context.Context, comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt, comment.UpdatedAt = now, now
	comment.Likes, comment.Replies = []string{}, []primitive.ObjectID{}
	cp := *comment
	f.comments[comment.ID] = &cp
	return nil
}

func (f fakeComments) GetCommentByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeComments) GetCommentsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Comment{}
	for _, id := range ids {
		if c, ok := f.comments[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f fakeComments) topLevel(postID primitive.ObjectID) []models.Comment {
	var all []models.Comment
	for _, c := range f.comments {
		if c.PostID == postID && c.ParentID == nil {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (f fakeComments) ListTopLevel(_ context.Context, postID primitive.ObjectID, skip, limit int64) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return window(f.topLevel(postID), skip, limit), nil
}

func (f fakeComments) CountTopLevel(_ context.Context, postID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.topLevel(postID))), nil
}

func (f fakeComments) AddReply(_ context.Context, parentID, replyID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[parentID]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Replies = append(c.Replies, replyID)
	return nil
}

func (f fakeComments) RemoveReply(_ context.Context, parentID, replyID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[parentID]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Replies = removeID(c.Replies, replyID)
	return nil
}

func (f fakeComments) ToggleLike(_ context.Context, commentID primitive.ObjectID, userID string) ([]string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	var liked bool
	c.Likes, liked = toggle(c.Likes, userID)
	return append([]string{}, c.Likes...), liked, nil
}

func (f fakeComments) DeleteComment(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f fakeComments) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cascadeErr != nil && len(ids) > 0 {
		return 0, f.cascadeErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := f.comments[id]; ok {
			delete(f.comments, id)
			n++
		}
	}
	return n, nil
}

func (f fakeComments) DeleteByPost(_ context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cascadeErr != nil {
		return nil, f.cascadeErr
	}
	var ids []primitive.ObjectID
	for id, c := range f.comments {
		if c.PostID == postID {
			ids = append(ids, id)
			delete(f.comments, id)
		}
	}
	return ids, nil
}

type fakeNotifications struct{ *memDB }

func (f fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createNotificationErr != nil {
		return f.createNotificationErr
	}
	now := f.tick()
	n.ID = primitive.NewObjectID()
	n.IsRead = false
	n.CreatedAt, n.UpdatedAt = now, now
	cp := *n
	f.notifications[n.ID] = &cp
	return nil
}

func (f fakeNotifications) ListByRecipient(_ context.Context, to string, skip, limit int64) ([]models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Notification
	for _, n := range f.notifications {
		if n.To == to {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, skip, limit), int64(len(all)), nil
}

func (f fakeNotifications) CountUnread(_ context.Context, to string) (int64, error) {
	f.mu.Lock()
	var n int64
	for _, x := range f.notifications {
		if x.To == to && !x.IsRead {
			n++
		}
	}
	hook := f.afterCountUnread
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return n, nil
}

func (f fakeNotifications) MarkAllRead(_ context.Context, to string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, x := range f.notifications {
		if x.To == to && !x.IsRead {
			x.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f fakeNotifications) DeleteForRecipient(_ context.Context, id primitive.ObjectID, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.To != to {
		return repositories.ErrNotFound
	}
	delete(f.notifications, id)
	return nil
}

type fakeUnread struct{ *memDB }

func (f fakeUnread) Get(_ context.Context, uid string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.unread[uid]
	return n, ok, nil
}

func (f fakeUnread) Generation(_ context.Context, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreadGens[uid], nil
}

func (f fakeUnread) SetIfGeneration(_ context.Context, uid string, count, gen int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreadGens[uid] != gen {
		return false, nil
	}
	f.unread[uid] = count
	return true, nil
}

func (f fakeUnread) Invalidate(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.unread, uid)
	f.unreadGens[uid]++
	f.unreadInvalidations++
	return nil
}

type fakeIdentity struct {
	identities map[string]*models.Identity
}

func (f fakeIdentity) LookupIdentity(_ context.Context, uid string) (*models.Identity, error) {
	if id, ok := f.identities[uid]; ok {
		return id, nil
	}
	return nil, repositories.ErrNotFound
}

// fixture wires every service against one memDB.
type fixture struct {
	db            *memDB
	notifications *NotificationService
	comments      *CommentService
	posts         *PostService
	users         *UserService
	search        *SearchService
}

func newFixture(policy NotificationPolicy, deletes DeletePolicy) *fixture {
	db := newMemDB()
	logger := newTestLogger()
	tx := compensating()

	notifier := NewNotificationService(fakeNotifications{db}, fakeUsers{db}, fakePosts{db}, fakeComments{db}, fakeUnread{db}, policy, logger)
	posts := NewPostService(fakePosts{db}, fakeComments{db}, fakeUsers{db}, notifier, deletes, logger)
	identity := fakeIdentity{identities: map[string]*models.Identity{}}

	return &fixture{
		db:            db,
		notifications: notifier,
		comments:      NewCommentService(fakeComments{db}, fakePosts{db}, fakeUsers{db}, notifier, tx, deletes, logger),
		posts:         posts,
		users:         NewUserService(fakeUsers{db}, fakeFollows{db}, identity, notifier, logger),
		search:        NewSearchService(fakeUsers{db}, fakePosts{db}, posts),
	}
}

func defaultFixture() *fixture {
	return newFixture(DefaultNotificationPolicy(), DeletePolicy{})
}

func window[T any](all []T, skip, limit int64) []T {
	if skip > int64(len(all)) {
		skip = int64(len(all))
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return append([]T{}, all[skip:end]...)
}

func toggle(values []string, v string) ([]string, bool) {
	for i, x := range values {
		if x == v {
			return append(values[:i:i], values[i+1:]...), false
		}
	}
	return append(values, v), true
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// unquoteMeta reverses regexp.QuoteMeta for the plain substring match above.
func unquoteMeta(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
