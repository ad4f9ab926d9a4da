package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/metrics"
	"github.com/prn-tf/skillswap/internal/repository"
)

// messageCacheTTL bounds how long a cached broadcast may outlive a write
// made by another node.
const messageCacheTTL = 5 * time.Minute

// ModerationService is the privileged surface used by administrators.
// It performs no privilege check itself.
type ModerationService struct {
	users    *UserService
	swaps    *SwapService
	userRepo repository.UserRepository
	messages repository.PlatformMessageRepository
	tx       repository.TxManager
	cache    repository.Cache
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time

	// cacheMu orders cache fills against writes; generation advances on
	// every write so a read that started earlier never repopulates the cache.
	cacheMu    sync.Mutex
	generation uint64
}

// NewModerationService creates a new ModerationService. cache may be nil.
func NewModerationService(
	users *UserService,
	swaps *SwapService,
	userRepo repository.UserRepository,
	messages repository.PlatformMessageRepository,
	tx repository.TxManager,
	cache repository.Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ModerationService {
	return &ModerationService{
		users:    users,
		swaps:    swaps,
		userRepo: userRepo,
		messages: messages,
		tx:       tx,
		cache:    cache,
		metrics:  m,
		logger:   logger.With().Str("service", "moderation").Logger(),
		now:      time.Now,
	}
}

// ListAllUsers returns every user regardless of visibility or ban state.
func (s *ModerationService) ListAllUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, wrapStorage(err, "list users")
	}
	return users, nil
}

// ListAllRequests returns every swap request, newest first.
func (s *ModerationService) ListAllRequests(ctx context.Context) ([]*domain.SwapRequest, error) {
	return s.swaps.ListAll(ctx)
}

// SetBanned bans or unbans a user.
func (s *ModerationService) SetBanned(ctx context.Context, userID string, banned bool) error {
	return s.users.SetBanned(ctx, userID, banned)
}

// SetBroadcastMessage replaces the current broadcast message.
func (s *ModerationService) SetBroadcastMessage(ctx context.Context, text string) (*domain.PlatformMessage, error) {
	msg := &domain.PlatformMessage{Message: text, UpdatedAt: s.now().UTC()}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.messages.Set(ctx, msg)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to set platform message")
		return nil, wrapStorage(err, "set platform message")
	}

	s.storeCached(ctx, msg)

	s.logger.Info().Int("length", len(text)).Msg("platform message updated")
	return msg, nil
}

// GetBroadcastMessage returns the current broadcast message. When none was
// ever set it returns an empty message with a zero UpdatedAt.
func (s *ModerationService) GetBroadcastMessage(ctx context.Context) (*domain.PlatformMessage, error) {
	key := repository.CacheKey{}.PlatformMessage()

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var msg domain.PlatformMessage
			if jsonErr := json.Unmarshal(data, &msg); jsonErr == nil {
				s.metrics.IncrementPlatformMessageRead("hit")
				return &msg, nil
			}
			s.logger.Warn().Msg("discarding malformed cached platform message")
		case !errors.Is(err, repository.ErrCacheMiss):
			s.logger.Warn().Err(err).Msg("platform message cache read failed")
		}
	}

	s.cacheMu.Lock()
	gen := s.generation
	s.cacheMu.Unlock()

	msg, err := s.messages.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get platform message")
		return nil, wrapStorage(err, "get platform message")
	}
	if msg == nil {
		msg = &domain.PlatformMessage{}
	}
	s.metrics.IncrementPlatformMessageRead("miss")

	s.fillCache(ctx, gen, msg)

	return msg, nil
}

// storeCached writes msg through to the cache after a successful store write.
// If the write fails the key is dropped instead.
func (s *ModerationService) storeCached(ctx context.Context, msg *domain.PlatformMessage) {
	if s.cache == nil {
		return
	}
	key := repository.CacheKey{}.PlatformMessage()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++

	data, err := json.Marshal(msg)
	if err == nil {
		err = s.cache.Set(ctx, key, data, messageCacheTTL)
	}
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Msg("failed to cache platform message")
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate cached platform message")
	}
}

// fillCache caches msg read from the store unless a write happened since
// generation gen was observed.
func (s *ModerationService) fillCache(ctx context.Context, gen uint64, msg *domain.PlatformMessage) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		s.logger.Debug().Msg("skipping platform message cache fill after concurrent update")
		return
	}
	if err := s.cache.Set(ctx, repository.CacheKey{}.PlatformMessage(), data, messageCacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache platform message")
	}
}
