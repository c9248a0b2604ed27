package service

import (
	"context"
	"strings"

	"github.com/lumen-social/lumen/internal/db"
)

const searchLimit = 25

// SearchService finds users and posts by substring
type SearchService struct {
	profiles *db.ProfileRepository
	posts    *db.PostRepository
}

// NewSearchService creates a search service
func NewSearchService(profiles *db.ProfileRepository, posts *db.PostRepository) *SearchService {
	return &SearchService{profiles: profiles, posts: posts}
}

// Users finds profiles whose username contains q. A blank query finds nothing.
func (s *SearchService) Users(ctx context.Context, q string) ([]ProfileView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []ProfileView{}, nil
	}
	profiles, err := s.profiles.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, *profileView(p))
	}
	return out, nil
}

// Posts finds posts whose text contains q. A blank query finds nothing.
func (s *SearchService) Posts(ctx context.Context, q string) ([]PostView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []PostView{}, nil
	}
	posts, err := s.posts.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	return postViews(posts), nil
}
