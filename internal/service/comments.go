package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lumen-social/lumen/internal/auth"
	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
)

const maxCommentLength = 1000

// Thread is the comments of a post with their count
type Thread struct {
	PostID   int64         `json:"post_id"`
	Comments []CommentView `json:"comments"`
	Count    int           `json:"count"`
}

// CommentService reads and writes post comments
type CommentService struct {
	comments *db.CommentRepository
	posts    *db.PostRepository
	profiles *db.ProfileRepository
	notifs   *NotificationService
}

// NewCommentService creates a comment service
func NewCommentService(comments *db.CommentRepository, posts *db.PostRepository, profiles *db.ProfileRepository, notifs *NotificationService) *CommentService {
	return &CommentService{comments: comments, posts: posts, profiles: profiles, notifs: notifs}
}

// Load returns a post's comments oldest first with their authors
func (s *CommentService) Load(ctx context.Context, postID int64) (*Thread, error) {
	if err := validPostID(postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(comments))
	seen := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.AuthorID]; !ok {
			seen[c.AuthorID] = struct{}{}
			ids = append(ids, c.AuthorID)
		}
	}
	authors, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView(c, authors[c.AuthorID]))
	}
	return &Thread{PostID: postID, Comments: views, Count: len(views)}, nil
}

// Add posts a comment and returns the refreshed thread
func (s *CommentService) Add(ctx context.Context, actor string, postID int64, text string) (*Thread, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	if err := validPostID(postID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("comment is empty")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, invalid("comment exceeds %d characters", maxCommentLength)
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}

	comment := &models.Comment{
		PostID:    postID,
		AuthorID:  actor,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.notifs.notify(ctx, post.AuthorID, actor, models.NotifyTypeComment, postID)
	return s.Load(ctx, postID)
}

// Remove deletes a comment and returns the remaining thread. Comment authors,
// the post's author and moderators may remove.
func (s *CommentService) Remove(ctx context.Context, actor string, role models.Role, commentID int64) (*Thread, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	if commentID <= 0 {
		return nil, invalid("comment id must be positive")
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrNotFound
	}

	owns := comment.AuthorID == actor
	if !owns {
		post, err := s.posts.GetByID(ctx, comment.PostID)
		if err != nil {
			return nil, err
		}
		owns = post != nil && post.AuthorID == actor
	}
	if !auth.CanEditOrDeletePost(role, owns) {
		return nil, ErrForbidden
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return nil, err
	}
	return s.Load(ctx, comment.PostID)
}
