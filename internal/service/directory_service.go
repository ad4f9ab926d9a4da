package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

// DirectoryService answers which public, non-banned users match a search term.
type DirectoryService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(users repository.UserRepository, logger zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		users:  users,
		logger: logger.With().Str("service", "directory").Logger(),
	}
}

// ListPublic returns discoverable users whose name or skills contain
// searchTerm, case-insensitively. An empty term returns every discoverable user.
func (s *DirectoryService) ListPublic(ctx context.Context, searchTerm string) ([]*domain.User, error) {
	users, err := s.users.ListPublic(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list public users")
		return nil, wrapStorage(err, "list public users")
	}

	result := make([]*domain.User, 0, len(users))
	for _, u := range users {
		// The repository filters too; this keeps the guarantee independent of it.
		if !u.IsDiscoverable() {
			continue
		}
		if u.MatchesSearch(searchTerm) {
			result = append(result, u)
		}
	}

	s.logger.Debug().Str("term", searchTerm).Int("count", len(result)).Msg("directory search")
	return result, nil
}
