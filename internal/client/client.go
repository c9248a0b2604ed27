// Package client assembles the service's dependencies. A Client is built
// explicitly and passed to whatever needs it; there is no package-level
// instance.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/auth"
	"github.com/lumen-social/lumen/internal/cache"
	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/service"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/config"
	"github.com/lumen-social/lumen/pkg/logging"
)

// Client owns the database, cache, object storage and the services built on them
type Client struct {
	cfg    *config.Config
	logger *zap.Logger

	DB       *db.DB
	Cache    *cache.Cache
	Store    *storage.Store
	Gateway  toggle.Gateway
	Registry *toggle.Registry
	Signer   *auth.Signer

	Relations     *service.RelationService
	Posts         *service.PostService
	Comments      *service.CommentService
	Profiles      *service.ProfileService
	Search        *service.SearchService
	Notifications *service.NotificationService
}

// New connects to every configured backend and builds the services
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.New(ctx, &cfg.Redis)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	c, err := NewWithBackends(cfg, database, redisCache, storage.New(&cfg.Storage))
	if err != nil {
		_ = redisCache.Close()
		_ = database.Close()
		return nil, err
	}
	return c, nil
}

// NewWithBackends builds a Client over already opened backends. redisCache
// and store may be nil when disabled.
func NewWithBackends(cfg *config.Config, database *db.DB, redisCache *cache.Cache, store *storage.Store) (*Client, error) {
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session signer: %w", err)
	}

	var gw toggle.Gateway = db.NewGateway(database.DB)
	if redisCache != nil {
		gw = cache.NewCountingGateway(gw, redisCache, cfg.Redis.CountTTL, db.LikeSchema, db.FollowSchema)
	}
	registry := toggle.NewRegistry(gw, toggle.WithRequestTimeout(cfg.Toggle.RequestTimeout))

	repo := db.NewRepository(database.DB)
	profiles := db.NewProfileRepository(repo)
	posts := db.NewPostRepository(repo)
	notifs := service.NewNotificationService(db.NewNotificationRepository(repo))

	return &Client{
		cfg:           cfg,
		logger:        logging.WithComponent("client"),
		DB:            database,
		Cache:         redisCache,
		Store:         store,
		Gateway:       gw,
		Registry:      registry,
		Signer:        signer,
		Relations:     service.NewRelationService(registry, gw, profiles, posts, notifs),
		Posts:         service.NewPostService(posts, store, cfg.Storage.PostsBucket),
		Comments:      service.NewCommentService(db.NewCommentRepository(repo), posts, profiles, notifs),
		Profiles:      service.NewProfileService(profiles, posts, db.NewFollowRepository(repo), gw, store, cfg.Storage.AvatarBucket),
		Search:        service.NewSearchService(profiles, posts),
		Notifications: notifs,
	}, nil
}

// Health checks the database and, when enabled, the cache
func (c *Client) Health(ctx context.Context) error {
	if err := c.DB.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Cache != nil {
		if err := c.Cache.Health(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// RunSweeper drops idle reconcilers every SweepInterval until ctx is done
func (c *Client) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Toggle.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Registry.Sweep(c.cfg.Toggle.IdleTTL); n > 0 {
				c.logger.Debug("swept idle reconcilers", zap.Int("removed", n), zap.Int("live", c.Registry.Len()))
			}
		}
	}
}

// Close releases the backends in reverse order of opening
func (c *Client) Close() error {
	var errs []error
	if err := c.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := c.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
