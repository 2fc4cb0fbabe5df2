package services

import (
	"context"
	"testing"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncUser_CreatesOnceFromIdentity(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.users.identity = fakeIdentity{identities: map[string]*models.Identity{
		"uid-1": {UID: "uid-1", Email: "Jane.Doe@example.com", FirstName: "Jane", LastName: "Doe"},
	}}

	user, created, err := f.users.SyncUser(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "jane.doe", user.Username)
	assert.Equal(t, "Jane", user.FirstName)

	again, created, err := f.users.SyncUser(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestSyncUser_TakenUsernameGetsSuffix(t *testing.T) {
	f := defaultFixture()
	f.db.addUser("someone", "jane")
	f.users.identity = fakeIdentity{identities: map[string]*models.Identity{
		"ABCDEFGHIJKL": {UID: "ABCDEFGHIJKL", Email: "jane@example.com"},
	}}

	user, created, err := f.users.SyncUser(context.Background(), "ABCDEFGHIJKL")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "jane_abcdef", user.Username)
}

func TestToggleFollow_SymmetricAndNotifiesOnce(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("a", "alice")
	f.db.addUser("b", "bob")

	res, err := f.users.ToggleFollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.Equal(t, "User followed successfully", res.Message)

	alice, err := f.users.Profile(ctx, "alice")
	require.NoError(t, err)
	bob, err := f.users.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, alice.Following)
	assert.Equal(t, []string{"a"}, bob.Followers)

	followers, err := f.users.Followers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	res, err = f.users.ToggleFollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, res.Following)

	bob, err = f.users.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.Followers)

	notes := f.db.notificationsTo("b")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)
}

func TestToggleFollow_Errors(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("a", "alice")

	_, err := f.users.ToggleFollow(ctx, "a", "a")
	assert.ErrorIs(t, err, ErrSelfFollow)

	_, err = f.users.ToggleFollow(ctx, "a", "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile_OnlyAllowListedFields(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("a", "alice")
	bio := "hello there"

	user, err := f.users.UpdateProfile(ctx, "a", models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello there", user.Bio)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.FirstName, "nil fields stay unchanged")

	_, err = f.users.UpdateProfile(ctx, "ghost", models.ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearch(t *testing.T) {
	f := defaultFixture()
	ctx := context.Background()
	f.db.addUser("a", "alice")
	f.db.addUser("b", "bob")
	f.db.addPost("b", "Alice in wonderland (1951)")
	f.db.addPost("b", "nothing here")

	res, err := f.search.Search(ctx, "  ALI ", pagination.New(1, 30, 30))
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "alice", res.Users[0].Username)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "bob", res.Posts[0].Author.Username)

	res, err = f.search.Search(ctx, "(1951)", pagination.New(1, 30, 30))
	require.NoError(t, err)
	assert.Len(t, res.Posts, 1, "metacharacters match literally")

	res, err = f.search.Search(ctx, "   ", pagination.New(1, 30, 30))
	require.NoError(t, err)
	assert.Empty(t, res.Users)
	assert.Empty(t, res.Posts)
}
