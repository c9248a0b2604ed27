package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lumen-social/lumen/internal/toggle"
)

func TestGatewayInsertExistsDelete(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	gw := NewGateway(d.DB)
	alice := seedProfile(t, d, "alice")
	bob := seedProfile(t, d, "bob")
	key := FollowSchema.Key(alice.ID, bob.ID)

	exists, err := gw.ExistsByKey(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	record, err := FollowSchema.NewRecord(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, gw.Insert(ctx, FollowSchema.Table, record))

	exists, err = gw.ExistsByKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := gw.CountByField(ctx, FollowSchema.Table, FollowSchema.TargetField, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, gw.DeleteByKey(ctx, key))
	exists, err = gw.ExistsByKey(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is not an error.
	require.NoError(t, gw.DeleteByKey(ctx, key))
}

func TestGatewayDuplicateInsertIsConflict(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	gw := NewGateway(d.DB)
	alice := seedProfile(t, d, "alice")
	post := seedPost(t, d, alice, "hello", time.Now())

	first, err := LikeSchema.NewRecord(alice.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, gw.Insert(ctx, LikeSchema.Table, first))

	second, err := LikeSchema.NewRecord(alice.ID, post.ID)
	require.NoError(t, err)
	err = gw.Insert(ctx, LikeSchema.Table, second)
	require.Error(t, err)
	assert.Equal(t, toggle.KindConflict, toggle.KindOf(err))

	n, err := gw.CountByField(ctx, LikeSchema.Table, LikeSchema.TargetField, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReconcilersConvergeOnDatabase(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	gw := NewGateway(d.DB)
	alice := seedProfile(t, d, "alice")
	bob := seedProfile(t, d, "bob")

	devices := []*toggle.Reconciler{
		toggle.New(gw, FollowSchema, alice.ID, bob.ID),
		toggle.New(gw, FollowSchema, alice.ID, bob.ID),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(devices))
	for i, r := range devices {
		wg.Add(1)
		go func(i int, r *toggle.Reconciler) {
			defer wg.Done()
			_, errs[i] = r.Toggle(ctx)
		}(i, r)
	}
	wg.Wait()

	for i, r := range devices {
		assert.NoError(t, errs[i])
		assert.True(t, r.State())
	}
	n, err := gw.CountByField(ctx, FollowSchema.Table, FollowSchema.ActorField, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCountedLikeOnDatabase(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	gw := NewGateway(d.DB)
	alice := seedProfile(t, d, "alice")
	bob := seedProfile(t, d, "bob")
	post := seedPost(t, d, alice, "hello", time.Now())

	bobs := toggle.NewCounted(gw, LikeSchema, bob.ID, post.ID)
	_, err := bobs.Toggle(ctx)
	require.NoError(t, err)

	r := toggle.NewCounted(gw, LikeSchema, alice.ID, post.ID)
	_, err = r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Count())

	active, err := r.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, int64(2), r.Count())
}

func TestSchemaRecords(t *testing.T) {
	_, err := FollowSchema.NewRecord("a", 12)
	assert.Error(t, err)
	_, err = LikeSchema.NewRecord("a", "12")
	assert.Error(t, err)
	_, err = LikeSchema.NewRecord("a", int64(0))
	assert.Error(t, err)

	rec, err := LikeSchema.NewRecord("a", int64(12))
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind toggle.Kind
		wantCode string
	}{
		{"gorm duplicated", gorm.ErrDuplicatedKey, toggle.KindConflict, CodeUniqueViolation},
		{"pg unique", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}, toggle.KindConflict, "23505"},
		{"message only", errors.New(`ERROR: duplicate key value violates unique constraint "follows_pkey"`), toggle.KindConflict, CodeUniqueViolation},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: likes.post_id, likes.user_id (2067)"), toggle.KindConflict, CodeUniqueViolation},
		{"pg permission", &pgconn.PgError{Code: "42501", Message: "permission denied for table follows"}, toggle.KindPermission, "42501"},
		{"not found", gorm.ErrRecordNotFound, toggle.KindNotFound, ""},
		{"network", fmt.Errorf("query: %w", timeoutErr{}), toggle.KindUnavailable, ""},
		{"check violation", &pgconn.PgError{Code: "23514", Message: "violates check constraint"}, toggle.KindOther, "23514"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("insert", tt.err)
			var te *toggle.Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantKind, te.Kind)
			assert.Equal(t, tt.wantCode, te.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify("insert", nil))
}
