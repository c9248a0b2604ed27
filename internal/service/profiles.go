package service

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"

	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/storage"
	"github.com/lumen-social/lumen/internal/toggle"
)

const (
	profilePostLimit = 60
	followListLimit  = 200
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// newValidator returns a validator with the project's custom tags
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Stats are the counters shown on a profile
type Stats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Posts     int64 `json:"posts"`
}

// ProfilePage is a profile with its counters and recent posts
type ProfilePage struct {
	Profile ProfileView `json:"profile"`
	Stats   Stats       `json:"stats"`
	Posts   []PostView  `json:"posts"`
}

// UpdateProfileInput holds editable profile fields
type UpdateProfileInput struct {
	Username  string `json:"username" validate:"required,min=3,max=30,username"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=1024"`
}

// ProfileService reads and edits profiles
type ProfileService struct {
	profiles *db.ProfileRepository
	posts    *db.PostRepository
	follows  *db.FollowRepository
	gw       toggle.Gateway
	store    *storage.Store
	bucket   string
	validate *validator.Validate
}

// NewProfileService creates a profile service
func NewProfileService(profiles *db.ProfileRepository, posts *db.PostRepository, follows *db.FollowRepository, gw toggle.Gateway, store *storage.Store, avatarBucket string) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		posts:    posts,
		follows:  follows,
		gw:       gw,
		store:    store,
		bucket:   avatarBucket,
		validate: newValidator(),
	}
}

// ByUsername returns the profile page of username
func (s *ProfileService) ByUsername(ctx context.Context, username string) (*ProfilePage, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, invalid("username is required")
	}
	profile, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}

	stats, err := s.Stats(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, profile.ID, profilePostLimit)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Author = profile
	}
	return &ProfilePage{
		Profile: *profileView(profile),
		Stats:   stats,
		Posts:   postViews(posts),
	}, nil
}

// Stats counts followers, followees and posts of userID in parallel
func (s *ProfileService) Stats(ctx context.Context, userID string) (Stats, error) {
	userID, err := canonicalUserID(userID)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		n, err := s.gw.CountByField(ctx, models.FollowTable, models.FollowColumnTarget, userID)
		stats.Followers = n
		return err
	})
	p.Go(func(ctx context.Context) error {
		n, err := s.gw.CountByField(ctx, models.FollowTable, models.FollowColumnFollower, userID)
		stats.Following = n
		return err
	})
	p.Go(func(ctx context.Context) error {
		n, err := s.gw.CountByField(ctx, models.Post{}.TableName(), "author_id", userID)
		stats.Posts = n
		return err
	})
	if err := p.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Followers lists the profiles following userID
func (s *ProfileService) Followers(ctx context.Context, userID string) ([]ProfileView, error) {
	userID, err := canonicalUserID(userID)
	if err != nil {
		return nil, err
	}
	ids, err := s.follows.FollowerIDs(ctx, userID, followListLimit)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// Following lists the profiles userID follows
func (s *ProfileService) Following(ctx context.Context, userID string) ([]ProfileView, error) {
	userID, err := canonicalUserID(userID)
	if err != nil {
		return nil, err
	}
	ids, err := s.follows.FollowingIDs(ctx, userID, followListLimit)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// resolve maps ids to profiles keeping their order
func (s *ProfileService) resolve(ctx context.Context, ids []string) ([]ProfileView, error) {
	byID, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileView, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, *profileView(p))
		}
	}
	return out, nil
}

// Update changes the actor's username and avatar
func (s *ProfileService) Update(ctx context.Context, actor string, in UpdateProfileInput) (*ProfileView, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalidStruct(err)
	}

	avatar := sql.NullString{String: in.AvatarURL, Valid: in.AvatarURL != ""}
	err := s.profiles.Update(ctx, actor, sql.NullString{String: in.Username, Valid: true}, avatar)
	if err != nil {
		if toggle.KindOf(err) == toggle.KindNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, actor)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profileView(profile), nil
}

// UploadAvatar stores an image in the avatar bucket and returns its public URL.
// The profile is not changed until Update is called with the URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, actor string, data []byte) (*storage.Object, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	if len(data) == 0 {
		return nil, invalid("avatar data is empty")
	}
	return s.store.Upload(ctx, s.bucket, actor, data)
}
