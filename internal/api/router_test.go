package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-social/lumen/internal/client"
	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/service"
	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/config"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	client *client.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, err := db.Open(sqlite.Open(":memory:"), "ERROR")
	require.NoError(t, err)
	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, d.Migrate(context.Background()))

	cfg := &config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Storage: config.StorageConfig{PostsBucket: "posts", AvatarBucket: "avatars"},
		Toggle:  config.ToggleConfig{IdleTTL: time.Minute, SweepInterval: time.Second},
	}
	cl, err := client.NewWithBackends(cfg, d, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	engine := gin.New()
	NewRouter(cl, true).SetupRoutes(engine)
	return &testServer{engine: engine, client: cl}
}

// user creates a profile and returns its id with a session token
func (s *testServer) user(t *testing.T, username string) (string, string) {
	t.Helper()
	p := &models.Profile{ID: uuid.NewString(), Role: models.RoleUser, CreatedAt: time.Now().UTC()}
	p.Username.String, p.Username.Valid = username, true
	repo := db.NewProfileRepository(db.NewRepository(s.client.DB.DB))
	require.NoError(t, repo.Create(context.Background(), p))

	token, err := s.client.Signer.Issue(p.ID, models.RoleUser)
	require.NoError(t, err)
	return p.ID, token
}

func (s *testServer) raw(t *testing.T, token, body string) rpcResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) call(t *testing.T, token, method string, params interface{}) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)
	return s.raw(t, token, string(body))
}

func snapshotOf(t *testing.T, resp rpcResponse) toggle.Snapshot {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	var snap toggle.Snapshot
	require.NoError(t, json.Unmarshal(resp.Result, &snap))
	return snap
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/.well-known/healthcheck.json"} {
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"OK"`)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, ErrParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"feed.list"}`, ErrInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"condenser_api.get_blog"}`, ErrMethodNotFound},
		{"unknown param", `{"jsonrpc":"2.0","id":1,"method":"feed.list","params":{"page":2}}`, ErrInvalidParams},
		{"cursor id without time", `{"jsonrpc":"2.0","id":1,"method":"feed.list","params":{"before_id":2}}`, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.raw(t, "", tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRegisteredMethods(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s.client, false)

	assert.ElementsMatch(t, []string{
		"follow.status", "follow.toggle", "follow.counts", "follow.followers", "follow.following",
		"like.status", "like.toggle", "session.sign_out",
		"feed.list", "post.get", "post.by_author", "post.create", "post.delete", "post.upload_media",
		"comment.list", "comment.add", "comment.remove",
		"profile.get", "profile.update", "profile.upload_avatar", "search.users", "search.posts",
		"notification.list", "notification.mark_read", "notification.mark_all_read",
	}, router.handler.Methods())
}

func TestFollowToggleOverRPC(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "alice")
	bob, _ := s.user(t, "bob")

	t.Run("anonymous is rejected", func(t *testing.T) {
		resp := s.call(t, "", "follow.toggle", map[string]string{"user_id": bob})
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrUnauthorized, resp.Error.Code)

		var msg service.Message
		require.NoError(t, json.Unmarshal(resp.Error.Data, &msg))
		assert.Equal(t, "Sign in to continue.", msg.Message)
	})

	t.Run("self follow is invalid", func(t *testing.T) {
		resp := s.call(t, aliceToken, "follow.toggle", map[string]string{"user_id": alice})
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrInvalidParams, resp.Error.Code)
	})

	t.Run("follow then unfollow", func(t *testing.T) {
		snap := snapshotOf(t, s.call(t, aliceToken, "follow.toggle", map[string]string{"user_id": bob}))
		assert.True(t, snap.Active)
		assert.False(t, snap.Pending)

		status := snapshotOf(t, s.call(t, aliceToken, "follow.status", map[string]string{"user_id": bob}))
		assert.True(t, status.Active)

		snap = snapshotOf(t, s.call(t, aliceToken, "follow.toggle", map[string]string{"user_id": bob}))
		assert.False(t, snap.Active)
	})

	t.Run("anonymous status is inactive", func(t *testing.T) {
		status := snapshotOf(t, s.call(t, "", "follow.status", map[string]string{"user_id": bob}))
		assert.False(t, status.Active)
	})
}

func TestLikeToggleOverRPC(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "alice")
	_, bobToken := s.user(t, "bob")

	created := s.call(t, aliceToken, "post.create", map[string]string{"text_content": "sunset"})
	require.Nil(t, created.Error)
	var post service.PostView
	require.NoError(t, json.Unmarshal(created.Result, &post))
	assert.Equal(t, alice, post.AuthorID)

	snap := snapshotOf(t, s.call(t, bobToken, "like.toggle", map[string]int64{"post_id": post.ID}))
	assert.True(t, snap.Active)
	assert.Equal(t, int64(1), snap.Count)

	anon := snapshotOf(t, s.call(t, "", "like.status", map[string]int64{"post_id": post.ID}))
	assert.False(t, anon.Active)
	assert.Equal(t, int64(1), anon.Count)

	notifs := s.call(t, aliceToken, "notification.list", nil)
	require.Nil(t, notifs.Error)
	var list []service.NotificationView
	require.NoError(t, json.Unmarshal(notifs.Result, &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyTypeLike, list[0].Type)

	missing := s.call(t, bobToken, "like.toggle", map[string]int64{"post_id": post.ID + 100})
	require.NotNil(t, missing.Error)
	assert.Equal(t, ErrNotFound, missing.Error.Code)
}

func TestFeedOverRPC(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, "alice")

	for _, text := range []string{"first", "second"} {
		resp := s.call(t, token, "post.create", map[string]string{"text_content": text})
		require.Nil(t, resp.Error)
	}

	resp := s.call(t, "", "feed.list", map[string]int{"limit": 10})
	require.Nil(t, resp.Error)
	var feed []service.PostView
	require.NoError(t, json.Unmarshal(resp.Result, &feed))
	require.Len(t, feed, 2)
	assert.Equal(t, "second", feed[0].TextContent)
}

func TestSignOutReleasesReconcilers(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.user(t, "alice")
	bob, _ := s.user(t, "bob")

	snapshotOf(t, s.call(t, aliceToken, "follow.status", map[string]string{"user_id": bob}))
	assert.Equal(t, 1, s.client.Registry.Len())

	resp := s.call(t, aliceToken, "session.sign_out", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, 0, s.client.Registry.Len())

	anon := s.call(t, "", "session.sign_out", nil)
	require.NotNil(t, anon.Error)
	assert.Equal(t, ErrUnauthorized, anon.Error.Code)
}
