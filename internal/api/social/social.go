package social

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/api/params"
	"github.com/lumen-social/lumen/internal/service"
	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/logging"
)

// RelationAPI provides follow and like methods
type RelationAPI struct {
	relations *service.RelationService
	profiles  *service.ProfileService
	logger    *zap.Logger
}

// NewRelationAPI creates a new relation API
func NewRelationAPI(relations *service.RelationService, profiles *service.ProfileService) *RelationAPI {
	return &RelationAPI{
		relations: relations,
		profiles:  profiles,
		logger:    logging.WithComponent("api-social"),
	}
}

type userParams struct {
	UserID string `json:"user_id"`
}

type postParams struct {
	PostID int64 `json:"post_id"`
}

// toggleResult converts an in-flight rejection into a pending result
func toggleResult(snap toggle.Snapshot, err error) (interface{}, error) {
	if errors.Is(err, toggle.ErrInFlight) {
		snap.Pending = true
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// FollowStatus handles follow.status
func (a *RelationAPI) FollowStatus(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.relations.FollowStatus(c.Request.Context(), params.Identity(c).UserID, p.UserID)
}

// FollowToggle handles follow.toggle
func (a *RelationAPI) FollowToggle(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return toggleResult(a.relations.ToggleFollow(c.Request.Context(), params.Identity(c).UserID, p.UserID))
}

// FollowCounts handles follow.counts
func (a *RelationAPI) FollowCounts(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.profiles.Stats(c.Request.Context(), p.UserID)
}

// Followers handles follow.followers
func (a *RelationAPI) Followers(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.profiles.Followers(c.Request.Context(), p.UserID)
}

// Following handles follow.following
func (a *RelationAPI) Following(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.profiles.Following(c.Request.Context(), p.UserID)
}

// LikeStatus handles like.status
func (a *RelationAPI) LikeStatus(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p postParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.relations.LikeStatus(c.Request.Context(), params.Identity(c).UserID, p.PostID)
}

// LikeToggle handles like.toggle
func (a *RelationAPI) LikeToggle(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p postParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return toggleResult(a.relations.ToggleLike(c.Request.Context(), params.Identity(c).UserID, p.PostID))
}

// SignOut handles session.sign_out
func (a *RelationAPI) SignOut(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	id := params.Identity(c)
	if id.UserID == "" {
		return nil, toggle.ErrNoActor
	}
	released := a.relations.SignOut(id.UserID)
	a.logger.Debug("signed out", zap.String("user_id", id.UserID), zap.Int("released", released))
	return gin.H{"signed_out": true}, nil
}
