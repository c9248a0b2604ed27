package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
)

// fixture wires every service over a private in-memory database
type fixture struct {
	db        *db.DB
	repo      *db.Repository
	gw        *db.Gateway
	registry  *toggle.Registry
	notifs    *NotificationService
	relations *RelationService
	posts     *PostService
	comments  *CommentService
	profiles  *ProfileService
	search    *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.Open(sqlite.Open(":memory:"), "ERROR")
	require.NoError(t, err)
	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	repo := db.NewRepository(d.DB)
	gw := db.NewGateway(d.DB)
	registry := toggle.NewRegistry(gw)
	profiles := db.NewProfileRepository(repo)
	posts := db.NewPostRepository(repo)
	notifs := NewNotificationService(db.NewNotificationRepository(repo))

	return &fixture{
		db:        d,
		repo:      repo,
		gw:        gw,
		registry:  registry,
		notifs:    notifs,
		relations: NewRelationService(registry, gw, profiles, posts, notifs),
		posts:     NewPostService(posts, nil, "posts"),
		comments:  NewCommentService(db.NewCommentRepository(repo), posts, profiles, notifs),
		profiles:  NewProfileService(profiles, posts, db.NewFollowRepository(repo), gw, nil, "avatars"),
		search:    NewSearchService(profiles, posts),
	}
}

func (f *fixture) user(t *testing.T, username string, role models.Role) string {
	t.Helper()
	p := &models.Profile{ID: uuid.NewString(), Role: role, CreatedAt: time.Now().UTC()}
	if username != "" {
		p.Username.String, p.Username.Valid = username, true
	}
	require.NoError(t, db.NewProfileRepository(f.repo).Create(context.Background(), p))
	return p.ID
}

func (f *fixture) post(t *testing.T, author, text string) int64 {
	t.Helper()
	v, err := f.posts.Create(context.Background(), author, CreatePostInput{TextContent: text})
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) notifications(t *testing.T, user string) []NotificationView {
	t.Helper()
	list, err := f.notifs.Mine(context.Background(), user)
	require.NoError(t, err)
	return list
}
