package content

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/lumen-social/lumen/internal/api/params"
	"github.com/lumen-social/lumen/internal/service"
)

// CommentAPI provides comment methods
type CommentAPI struct {
	comments *service.CommentService
}

// NewCommentAPI creates a new comment API
func NewCommentAPI(comments *service.CommentService) *CommentAPI {
	return &CommentAPI{comments: comments}
}

// List handles comment.list
func (a *CommentAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		PostID int64 `json:"post_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.comments.Load(c.Request.Context(), p.PostID)
}

// Add handles comment.add
func (a *CommentAPI) Add(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		PostID  int64  `json:"post_id"`
		Content string `json:"content"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.comments.Add(c.Request.Context(), params.Identity(c).UserID, p.PostID, p.Content)
}

// Remove handles comment.remove
func (a *CommentAPI) Remove(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		CommentID int64 `json:"comment_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	id := params.Identity(c)
	return a.comments.Remove(c.Request.Context(), id.UserID, id.Role, p.CommentID)
}
