package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lumen-social/lumen/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(term)) + "%"
}

// ProfileRepository provides profile-related database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Classify("select", err)
	}
	return &profile, nil
}

// GetByUsername retrieves a profile by username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Classify("select", err)
	}
	return &profile, nil
}

// GetByIDs retrieves profiles keyed by ID
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, Classify("select", err)
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// Search finds profiles whose username contains term
func (r *ProfileRepository) Search(ctx context.Context, term string, limit int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, likePattern(term)).
		Order("username ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return profiles, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return Classify("insert", r.db.WithContext(ctx).Create(profile).Error)
}

// Update sets username and avatar of a profile
func (r *ProfileRepository) Update(ctx context.Context, id string, username, avatarURL sql.NullString) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"username":   username,
		"avatar_url": avatarURL,
	})
	if res.Error != nil {
		return Classify("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return Classify("update", gorm.ErrRecordNotFound)
	}
	return nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// PostCursor is a position in the newest-first post order. Posts sharing a
// timestamp are ordered by descending ID, so both fields are needed to resume
// inside a run of equal timestamps.
type PostCursor struct {
	CreatedAt time.Time
	ID        int64
}

// IsZero reports whether the cursor points before the newest post
func (c PostCursor) IsZero() bool {
	return c.CreatedAt.IsZero()
}

// List returns posts newest first, strictly after cursor in that order
func (r *PostRepository) List(ctx context.Context, cursor PostCursor, limit int) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Preload("Author")
	switch {
	case cursor.IsZero():
	case cursor.ID > 0:
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	default:
		q = q.Where("created_at < ?", cursor.CreatedAt)
	}
	var posts []*models.Post
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, Classify("select", err)
	}
	return posts, nil
}

// ListByAuthor returns an author's posts newest first
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return posts, nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Classify("select", err)
	}
	return &post, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return Classify("insert", r.db.WithContext(ctx).Create(post).Error)
}

// Delete deletes a post
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return Classify("delete", r.db.WithContext(ctx).Delete(&models.Post{}, id).Error)
}

// Search finds posts whose text contains term
func (r *PostRepository) Search(ctx context.Context, term string, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where(`LOWER(text_content) LIKE ? ESCAPE '\'`, likePattern(term)).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return posts, nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// ListByPost returns a post's comments oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return comments, nil
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Classify("select", err)
	}
	return &comment, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return Classify("insert", r.db.WithContext(ctx).Create(comment).Error)
}

// Delete deletes a comment
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	return Classify("delete", r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error)
}

// FollowRepository provides follow list queries
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// FollowerIDs returns the IDs of users following userID
func (r *FollowRepository) FollowerIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return ids, nil
}

// FollowingIDs returns the IDs of users userID follows
func (r *FollowRepository) FollowingIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return ids, nil
}

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// ListForUser returns a user's notifications newest first
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	var notifs []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&notifs).Error
	if err != nil {
		return nil, Classify("select", err)
	}
	return notifs, nil
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	return Classify("insert", r.db.WithContext(ctx).Create(notif).Error)
}

// MarkRead marks one of userID's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, id int64) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return Classify("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return Classify("update", gorm.ErrRecordNotFound)
	}
	return nil
}

// MarkAllRead marks every notification of userID as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Update("is_read", true)
	if res.Error != nil {
		return 0, Classify("update", res.Error)
	}
	return res.RowsAffected, nil
}
