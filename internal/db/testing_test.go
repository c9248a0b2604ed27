package db

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lumen-social/lumen/internal/models"
)

// openTestDB opens a migrated in-memory database private to the test.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(sqlite.Open(":memory:"), "ERROR")
	require.NoError(t, err)

	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	// A second pooled connection would see a different in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func seedProfile(t *testing.T, d *DB, username string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if username != "" {
		p.Username.String, p.Username.Valid = username, true
	}
	require.NoError(t, NewProfileRepository(NewRepository(d.DB)).Create(context.Background(), p))
	return p
}

func seedPost(t *testing.T, d *DB, author *models.Profile, text string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: author.ID, CreatedAt: at}
	p.TextContent.String, p.TextContent.Valid = text, text != ""
	require.NoError(t, NewPostRepository(NewRepository(d.DB)).Create(context.Background(), p))
	return p
}
