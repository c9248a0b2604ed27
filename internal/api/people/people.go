package people

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/lumen-social/lumen/internal/api/params"
	"github.com/lumen-social/lumen/internal/service"
)

// ProfileAPI provides profile and search methods
type ProfileAPI struct {
	profiles *service.ProfileService
	search   *service.SearchService
}

// NewProfileAPI creates a new profile API
func NewProfileAPI(profiles *service.ProfileService, search *service.SearchService) *ProfileAPI {
	return &ProfileAPI{profiles: profiles, search: search}
}

type queryParams struct {
	Query string `json:"q"`
}

// Get handles profile.get
func (a *ProfileAPI) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Username string `json:"username"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.profiles.ByUsername(c.Request.Context(), p.Username)
}

// Update handles profile.update
func (a *ProfileAPI) Update(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var in service.UpdateProfileInput
	if err := params.Decode(raw, &in); err != nil {
		return nil, err
	}
	return a.profiles.Update(c.Request.Context(), params.Identity(c).UserID, in)
}

// UploadAvatar handles profile.upload_avatar
func (a *ProfileAPI) UploadAvatar(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	data, err := params.DecodeData(raw)
	if err != nil {
		return nil, err
	}
	return a.profiles.UploadAvatar(c.Request.Context(), params.Identity(c).UserID, data)
}

// SearchUsers handles search.users
func (a *ProfileAPI) SearchUsers(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p queryParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.search.Users(c.Request.Context(), p.Query)
}

// SearchPosts handles search.posts
func (a *ProfileAPI) SearchPosts(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p queryParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.search.Posts(c.Request.Context(), p.Query)
}
