package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
)

func TestCommentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	carol := f.user(t, "carol", models.RoleUser)
	postID := f.post(t, alice, "photo")

	thread, err := f.comments.Add(ctx, bob, postID, "  nice!  ")
	require.NoError(t, err)
	require.Equal(t, 1, thread.Count)
	assert.Equal(t, "nice!", thread.Comments[0].Content)
	require.NotNil(t, thread.Comments[0].Author)
	assert.Equal(t, "bob", thread.Comments[0].Author.Username)

	thread, err = f.comments.Add(ctx, alice, postID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, 2, thread.Count)

	notifs := f.notifications(t, alice)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotifyTypeComment, notifs[0].Type)

	bobComment := thread.Comments[0].ID
	_, err = f.comments.Remove(ctx, carol, models.RoleUser, bobComment)
	assert.ErrorIs(t, err, ErrForbidden)

	// The post's author may remove comments on it.
	thread, err = f.comments.Remove(ctx, alice, models.RoleUser, bobComment)
	require.NoError(t, err)
	assert.Equal(t, 1, thread.Count)

	_, err = f.comments.Remove(ctx, alice, models.RoleUser, bobComment)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddCommentRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice", models.RoleUser)
	postID := f.post(t, alice, "photo")

	_, err := f.comments.Add(ctx, "", postID, "hi")
	assert.ErrorIs(t, err, toggle.ErrNoActor)

	_, err = f.comments.Add(ctx, alice, postID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.comments.Add(ctx, alice, postID+100, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	thread, err := f.comments.Load(ctx, postID)
	require.NoError(t, err)
	assert.Zero(t, thread.Count)
	assert.NotNil(t, thread.Comments)
}
