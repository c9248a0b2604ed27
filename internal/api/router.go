package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/api/content"
	"github.com/lumen-social/lumen/internal/api/notify"
	"github.com/lumen-social/lumen/internal/api/people"
	"github.com/lumen-social/lumen/internal/api/social"
	"github.com/lumen-social/lumen/internal/auth"
	"github.com/lumen-social/lumen/internal/client"
	"github.com/lumen-social/lumen/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	client  *client.Client
	metrics bool
	logger  *zap.Logger
}

// NewRouter creates a new API router. metrics exposes the Prometheus
// registry on /metrics.
func NewRouter(cl *client.Client, metrics bool) *Router {
	router := &Router{
		handler: NewJSONRPCHandler(),
		client:  cl,
		metrics: metrics,
		logger:  logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	if r.metrics {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// JSON-RPC endpoint
	engine.POST("/", auth.Optional(r.client.Signer), r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	cl := r.client

	// Relationships
	relations := social.NewRelationAPI(cl.Relations, cl.Profiles)
	r.handler.RegisterMethod("follow.status", relations.FollowStatus)
	r.handler.RegisterMethod("follow.toggle", relations.FollowToggle)
	r.handler.RegisterMethod("follow.counts", relations.FollowCounts)
	r.handler.RegisterMethod("follow.followers", relations.Followers)
	r.handler.RegisterMethod("follow.following", relations.Following)
	r.handler.RegisterMethod("like.status", relations.LikeStatus)
	r.handler.RegisterMethod("like.toggle", relations.LikeToggle)
	r.handler.RegisterMethod("session.sign_out", relations.SignOut)

	// Feed, posts and comments
	posts := content.NewPostAPI(cl.Posts)
	comments := content.NewCommentAPI(cl.Comments)
	r.handler.RegisterMethod("feed.list", posts.FeedList)
	r.handler.RegisterMethod("post.get", posts.Get)
	r.handler.RegisterMethod("post.by_author", posts.ByAuthor)
	r.handler.RegisterMethod("post.create", posts.Create)
	r.handler.RegisterMethod("post.delete", posts.Delete)
	r.handler.RegisterMethod("post.upload_media", posts.UploadMedia)
	r.handler.RegisterMethod("comment.list", comments.List)
	r.handler.RegisterMethod("comment.add", comments.Add)
	r.handler.RegisterMethod("comment.remove", comments.Remove)

	// Profiles and search
	profiles := people.NewProfileAPI(cl.Profiles, cl.Search)
	r.handler.RegisterMethod("profile.get", profiles.Get)
	r.handler.RegisterMethod("profile.update", profiles.Update)
	r.handler.RegisterMethod("profile.upload_avatar", profiles.UploadAvatar)
	r.handler.RegisterMethod("search.users", profiles.SearchUsers)
	r.handler.RegisterMethod("search.posts", profiles.SearchPosts)

	// Notifications
	notifs := notify.NewNotifyAPI(cl.Notifications)
	r.handler.RegisterMethod("notification.list", notifs.List)
	r.handler.RegisterMethod("notification.mark_read", notifs.MarkRead)
	r.handler.RegisterMethod("notification.mark_all_read", notifs.MarkAllRead)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := r.client.Health(ctx); err != nil {
		r.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "UNAVAILABLE",
			"service": "lumen-api",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"service":     "lumen-api",
		"reconcilers": r.client.Registry.Len(),
	})
}
