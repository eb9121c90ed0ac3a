package suggest

import (
	"context"
	"log"
	"strings"

	"dispatch-service/pkg/jwt"
)

const recentLimit = 10

// Searches reads a user's recently confirmed destinations, newest first.
type Searches interface {
	RecentSearches(ctx context.Context, userID string, limit int) ([]string, error)
}

// Suggester is the prompt endpoint.
type Suggester interface {
	Suggest(ctx context.Context, req Request) ([]string, error)
}

// Service enriches a suggestion request with the caller's history.
type Service struct {
	client   Suggester
	searches Searches
}

func NewService(client Suggester, searches Searches) *Service {
	return &Service{client: client, searches: searches}
}

// Suggest asks for destinations near location. History is best effort.
func (s *Service) Suggest(ctx context.Context, sess jwt.Session, location string) ([]string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrMissingLocation
	}

	var recent []string
	if s.searches != nil && sess.UserID != "" {
		var err error
		recent, err = s.searches.RecentSearches(ctx, sess.UserID, recentLimit)
		if err != nil {
			log.Printf("[suggest] recent searches for %s: %v", sess.UserID, err)
			recent = nil
		}
	}
	return s.client.Suggest(ctx, Request{UserLocation: location, RecentSearches: recent})
}
