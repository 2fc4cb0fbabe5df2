package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anonto42/chirpline/backend/internal/models"
	"github.com/anonto42/chirpline/backend/internal/pagination"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// SearchService matches users and posts against free text.
type SearchService struct {
	users repositories.UserRepository
	posts *PostService
	store repositories.PostRepository
}

func NewSearchService(users repositories.UserRepository, store repositories.PostRepository, posts *PostService) *SearchService {
	return &SearchService{users: users, posts: posts, store: store}
}

// Search runs a case-insensitive substring match of query over usernames,
// first and last names, and post content. The query is matched literally.
// A blank query returns empty lists.
func (s *SearchService) Search(ctx context.Context, query string, p pagination.Params) (*models.SearchResult, error) {
	result := &models.SearchResult{
		Users: []models.UserSummary{},
		Posts: []models.PostView{},
		Page:  p.Page,
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}

	var posts []models.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, _, err := s.users.SearchUsers(gctx, query, int(p.Skip()), p.Limit)
		if err != nil {
			return fmt.Errorf("search users: %w", err)
		}
		for i := range users {
			result.Users = append(result.Users, users[i].ToSummary())
		}
		return nil
	})
	g.Go(func() error {
		var err error
		posts, _, err = s.store.SearchPosts(gctx, regexp.QuoteMeta(query), p.Skip(), int64(p.Limit))
		if err != nil {
			return fmt.Errorf("search posts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	views, err := s.posts.withAuthors(ctx, posts)
	if err != nil {
		return nil, err
	}
	result.Posts = views
	return result, nil
}
