package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
)

// RelationService drives follow and like toggles through shared reconcilers.
// Reconcilers are reloaded before each toggle since other actors change the
// counts they hold.
type RelationService struct {
	registry *toggle.Registry
	gw       toggle.Gateway
	profiles *db.ProfileRepository
	posts    *db.PostRepository
	notifs   *NotificationService
}

// NewRelationService creates a relation service
func NewRelationService(registry *toggle.Registry, gw toggle.Gateway, profiles *db.ProfileRepository, posts *db.PostRepository, notifs *NotificationService) *RelationService {
	return &RelationService{
		registry: registry,
		gw:       gw,
		profiles: profiles,
		posts:    posts,
		notifs:   notifs,
	}
}

// canonicalUserID returns id in the lower-case hyphenated form that profiles
// are stored under. Upper-case, braced and urn forms of one id compare equal
// after this.
func canonicalUserID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", invalid("user id %q is not a uuid", id)
	}
	return u.String(), nil
}

// canonicalActor is canonicalUserID for the acting user. An empty actor stays
// empty; identities come from verified tokens, so a malformed one is rejected
// as absent.
func canonicalActor(actor string) (string, error) {
	if actor == "" {
		return "", toggle.ErrNoActor
	}
	id, err := canonicalUserID(actor)
	if err != nil {
		return "", toggle.ErrNoActor
	}
	return id, nil
}

func validPostID(id int64) error {
	if id <= 0 {
		return invalid("post id must be positive")
	}
	return nil
}

// FollowStatus reports whether actor follows target. Anonymous callers
// always see an inactive relationship.
func (s *RelationService) FollowStatus(ctx context.Context, actor, target string) (toggle.Snapshot, error) {
	target, err := canonicalUserID(target)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	actor, err = canonicalActor(actor)
	if err != nil || actor == target {
		return toggle.Snapshot{}, nil
	}
	rec, err := s.registry.Load(ctx, db.FollowSchema, actor, target)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

// ToggleFollow follows or unfollows target. The returned snapshot is valid
// alongside ErrInFlight and gateway errors.
func (s *RelationService) ToggleFollow(ctx context.Context, actor, target string) (toggle.Snapshot, error) {
	actor, err := canonicalActor(actor)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	target, err = canonicalUserID(target)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	if actor == target {
		return toggle.Snapshot{}, toggle.ErrSelfTarget
	}
	profile, err := s.profiles.GetByID(ctx, target)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	if profile == nil {
		return toggle.Snapshot{}, ErrNotFound
	}

	rec, err := s.registry.Load(ctx, db.FollowSchema, actor, target)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	tr, err := rec.Flip(ctx)
	if err == nil && tr.Created {
		s.notifs.notify(ctx, target, actor, models.NotifyTypeFollow, 0)
	}
	return rec.Snapshot(), err
}

// LikeStatus reports the like count of a post and whether actor likes it
func (s *RelationService) LikeStatus(ctx context.Context, actor string, postID int64) (toggle.Snapshot, error) {
	if err := validPostID(postID); err != nil {
		return toggle.Snapshot{}, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	if post == nil {
		return toggle.Snapshot{}, ErrNotFound
	}
	if actor == "" {
		n, err := s.gw.CountByField(ctx, db.LikeSchema.Table, db.LikeSchema.TargetField, postID)
		if err != nil {
			return toggle.Snapshot{}, err
		}
		return toggle.Snapshot{Count: n}, nil
	}
	actor, err = canonicalActor(actor)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	rec, err := s.registry.LoadCounted(ctx, db.LikeSchema, actor, postID)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

// ToggleLike likes or unlikes a post
func (s *RelationService) ToggleLike(ctx context.Context, actor string, postID int64) (toggle.Snapshot, error) {
	actor, err := canonicalActor(actor)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	if err := validPostID(postID); err != nil {
		return toggle.Snapshot{}, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	if post == nil {
		return toggle.Snapshot{}, ErrNotFound
	}

	rec, err := s.registry.LoadCounted(ctx, db.LikeSchema, actor, postID)
	if err != nil {
		return toggle.Snapshot{}, err
	}
	tr, err := rec.Flip(ctx)
	if err == nil && tr.Created {
		s.notifs.notify(ctx, post.AuthorID, actor, models.NotifyTypeLike, postID)
	}
	return rec.Snapshot(), err
}

// SignOut drops every reconciler held for actor
func (s *RelationService) SignOut(actor string) int {
	if actor == "" {
		return 0
	}
	return s.registry.Forget(actor)
}
