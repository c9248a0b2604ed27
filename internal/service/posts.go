package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/auth"
	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/logging"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// CreatePostInput holds a new post
type CreatePostInput struct {
	TextContent string `json:"text_content" validate:"max=2200"`
	MediaURL    string `json:"media_url" validate:"omitempty,url,max=1024"`
}

// PostService publishes, reads and deletes posts
type PostService struct {
	posts    *db.PostRepository
	store    *storage.Store
	bucket   string
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPostService creates a post service
func NewPostService(posts *db.PostRepository, store *storage.Store, postsBucket string) *PostService {
	return &PostService{
		posts:    posts,
		store:    store,
		bucket:   postsBucket,
		validate: newValidator(),
		logger:   logging.WithComponent("posts"),
	}
}

// Feed lists posts newest first, starting after cursor when it is set
func (s *PostService) Feed(ctx context.Context, limit int, cursor db.PostCursor) ([]PostView, error) {
	switch {
	case limit <= 0:
		limit = defaultFeedLimit
	case limit > maxFeedLimit:
		limit = maxFeedLimit
	}
	if cursor.ID < 0 || (cursor.ID > 0 && cursor.IsZero()) {
		return nil, invalid("feed cursor needs before with before_id")
	}
	posts, err := s.posts.List(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	return postViews(posts), nil
}

// Get returns a post
func (s *PostService) Get(ctx context.Context, id int64) (*PostView, error) {
	if err := validPostID(id); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	v := postView(post)
	return &v, nil
}

// Create publishes a post authored by actor. A post needs text, media or both.
func (s *PostService) Create(ctx context.Context, actor string, in CreatePostInput) (*PostView, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	in.TextContent = strings.TrimSpace(in.TextContent)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalidStruct(err)
	}
	if in.TextContent == "" && in.MediaURL == "" {
		return nil, invalid("a post needs text or media")
	}

	post := &models.Post{
		AuthorID:    actor,
		TextContent: sql.NullString{String: in.TextContent, Valid: in.TextContent != ""},
		MediaURL:    sql.NullString{String: in.MediaURL, Valid: in.MediaURL != ""},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.Get(ctx, post.ID)
}

// Delete removes a post. Authors and moderators may delete.
func (s *PostService) Delete(ctx context.Context, actor string, role models.Role, id int64) error {
	if actor == "" {
		return toggle.ErrNoActor
	}
	if err := validPostID(id); err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}
	if !auth.CanEditOrDeletePost(role, post.AuthorID == actor) {
		return ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}

	if path, ok := s.store.PathFromURL(s.bucket, post.MediaURL.String); ok {
		if err := s.store.Delete(ctx, s.bucket, path); err != nil {
			s.logger.Warn("failed to delete post media", zap.Int64("post_id", id), zap.Error(err))
		}
	}
	return nil
}

// ByAuthor lists an author's posts
func (s *PostService) ByAuthor(ctx context.Context, authorID string) ([]PostView, error) {
	authorID, err := canonicalUserID(authorID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, authorID, profilePostLimit)
	if err != nil {
		return nil, err
	}
	return postViews(posts), nil
}

// UploadMedia stores post media for actor and returns its public URL
func (s *PostService) UploadMedia(ctx context.Context, actor string, data []byte) (*storage.Object, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	if len(data) == 0 {
		return nil, invalid("media data is empty")
	}
	return s.store.Upload(ctx, s.bucket, actor, data)
}
