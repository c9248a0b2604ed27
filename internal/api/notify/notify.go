package notify

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/lumen-social/lumen/internal/api/params"
	"github.com/lumen-social/lumen/internal/service"
)

// NotifyAPI provides notification methods
type NotifyAPI struct {
	notifs *service.NotificationService
}

// NewNotifyAPI creates a new notification API
func NewNotifyAPI(notifs *service.NotificationService) *NotifyAPI {
	return &NotifyAPI{notifs: notifs}
}

// List handles notification.list
func (a *NotifyAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	return a.notifs.Mine(c.Request.Context(), params.Identity(c).UserID)
}

// MarkRead handles notification.mark_read
func (a *NotifyAPI) MarkRead(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID int64 `json:"id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if err := a.notifs.MarkRead(c.Request.Context(), params.Identity(c).UserID, p.ID); err != nil {
		return nil, err
	}
	return gin.H{"updated": 1}, nil
}

// MarkAllRead handles notification.mark_all_read
func (a *NotifyAPI) MarkAllRead(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	n, err := a.notifs.MarkAllRead(c.Request.Context(), params.Identity(c).UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"updated": n}, nil
}
