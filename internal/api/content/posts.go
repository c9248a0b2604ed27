package content

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumen-social/lumen/internal/api/params"
	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/service"
)

// PostAPI provides feed and post methods
type PostAPI struct {
	posts *service.PostService
}

// NewPostAPI creates a new post API
func NewPostAPI(posts *service.PostService) *PostAPI {
	return &PostAPI{posts: posts}
}

// FeedList handles feed.list
func (a *PostAPI) FeedList(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Limit    int        `json:"limit"`
		Before   *time.Time `json:"before"`
		BeforeID int64      `json:"before_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	cursor := db.PostCursor{ID: p.BeforeID}
	if p.Before != nil {
		cursor.CreatedAt = *p.Before
	}
	return a.posts.Feed(c.Request.Context(), p.Limit, cursor)
}

// Get handles post.get
func (a *PostAPI) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		PostID int64 `json:"post_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.posts.Get(c.Request.Context(), p.PostID)
}

// ByAuthor handles post.by_author
func (a *PostAPI) ByAuthor(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.posts.ByAuthor(c.Request.Context(), p.UserID)
}

// Create handles post.create
func (a *PostAPI) Create(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var in service.CreatePostInput
	if err := params.Decode(raw, &in); err != nil {
		return nil, err
	}
	return a.posts.Create(c.Request.Context(), params.Identity(c).UserID, in)
}

// Delete handles post.delete
func (a *PostAPI) Delete(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		PostID int64 `json:"post_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	id := params.Identity(c)
	if err := a.posts.Delete(c.Request.Context(), id.UserID, id.Role, p.PostID); err != nil {
		return nil, err
	}
	return gin.H{"deleted": true}, nil
}

// UploadMedia handles post.upload_media. Data is base64 encoded.
func (a *PostAPI) UploadMedia(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	data, err := params.DecodeData(raw)
	if err != nil {
		return nil, err
	}
	return a.posts.UploadMedia(c.Request.Context(), params.Identity(c).UserID, data)
}
