package service

import (
	"time"

	"github.com/lumen-social/lumen/internal/models"
)

// Views are the records handed to callers. Nullable columns are defaulted
// here so nothing downstream checks validity flags.

// ProfileView is a public profile
type ProfileView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	AvatarURL string      `json:"avatar_url"`
	Role      models.Role `json:"role"`
}

// PostView is a post with its author
type PostView struct {
	ID          int64        `json:"id"`
	AuthorID    string       `json:"author_id"`
	Author      *ProfileView `json:"author,omitempty"`
	MediaURL    string       `json:"media_url"`
	TextContent string       `json:"text_content"`
	CreatedAt   time.Time    `json:"created_at"`
}

// CommentView is a comment with its author
type CommentView struct {
	ID        int64        `json:"id"`
	PostID    int64        `json:"post_id"`
	AuthorID  string       `json:"author_id"`
	Author    *ProfileView `json:"author,omitempty"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// NotificationView is a notification
type NotificationView struct {
	ID        int64                   `json:"id"`
	ActorID   string                  `json:"actor_id"`
	Type      models.NotificationType `json:"type"`
	PostID    *int64                  `json:"post_id"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

func profileView(p *models.Profile) *ProfileView {
	if p == nil {
		return nil
	}
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	return &ProfileView{
		ID:        p.ID,
		Username:  p.Username.String,
		AvatarURL: p.AvatarURL.String,
		Role:      role,
	}
}

func postView(p *models.Post) PostView {
	return PostView{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Author:      profileView(p.Author),
		MediaURL:    p.MediaURL.String,
		TextContent: p.TextContent.String,
		CreatedAt:   p.CreatedAt,
	}
}

func postViews(posts []*models.Post) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, postView(p))
	}
	return out
}

func commentView(c *models.Comment, author *models.Profile) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Author:    profileView(author),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func notificationView(n *models.Notification) NotificationView {
	v := NotificationView{
		ID:        n.ID,
		ActorID:   n.ActorID,
		Type:      n.Type,
		IsRead:    n.IsRead.Valid && n.IsRead.Bool,
		CreatedAt: n.CreatedAt,
	}
	if n.PostID.Valid {
		id := n.PostID.Int64
		v.PostID = &id
	}
	return v
}
