package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/skillswap/internal/cache/memory"
	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/lock"
	"github.com/prn-tf/skillswap/internal/repository"
)

type moderationFixture struct {
	svc      *ModerationService
	users    *UserService
	swaps    *SwapService
	messages *fakeMessageRepository
}

func newModerationFixture(t *testing.T, cache repository.Cache) moderationFixture {
	t.Helper()
	userRepo := newFakeUserRepository()
	swapRepo := newFakeSwapRepository()
	messages := &fakeMessageRepository{}

	users := NewUserService(userRepo, repository.NoTx, plainAuth{}, &fakePhotos{}, lock.NewNoOpLocker(), nil, zerolog.Nop())
	swaps := NewSwapService(swapRepo, userRepo, repository.NoTx, SwapPolicy{}, nil, zerolog.Nop())
	svc := NewModerationService(users, swaps, userRepo, messages, repository.NoTx, cache, nil, zerolog.Nop())
	svc.now = fixedClock(testStart)

	return moderationFixture{svc: svc, users: users, swaps: swaps, messages: messages}
}

func TestModerationService_ListAllUsers(t *testing.T) {
	f := newModerationFixture(t, nil)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
	require.NoError(t, err)
	hidden, err := f.users.CreateUser(ctx, CreateUserInput{Name: "bob", Password: "x", IsPublic: ptr(false)})
	require.NoError(t, err)
	require.NoError(t, f.svc.SetBanned(ctx, hidden.ID, true))

	users, err := f.svc.ListAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.True(t, users[1].IsBanned)
}

func TestModerationService_ListAllRequests(t *testing.T) {
	f := newModerationFixture(t, nil)
	ctx := context.Background()

	_, err := f.swaps.CreateRequest(ctx, validRequest())
	require.NoError(t, err)

	reqs, err := f.svc.ListAllRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestModerationService_BroadcastMessage(t *testing.T) {
	f := newModerationFixture(t, nil)
	ctx := context.Background()

	msg, err := f.svc.GetBroadcastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", msg.Message)
	assert.True(t, msg.UpdatedAt.IsZero())

	_, err = f.svc.SetBroadcastMessage(ctx, "maintenance at noon")
	require.NoError(t, err)
	_, err = f.svc.SetBroadcastMessage(ctx, "all clear")
	require.NoError(t, err)

	msg, err = f.svc.GetBroadcastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "all clear", msg.Message)
	assert.False(t, msg.UpdatedAt.IsZero())
}

func TestModerationService_BroadcastMessage_Cached(t *testing.T) {
	c := memory.NewCache(0)
	t.Cleanup(c.Stop)
	f := newModerationFixture(t, c)
	ctx := context.Background()

	_, err := f.svc.SetBroadcastMessage(ctx, "hello")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		msg, err := f.svc.GetBroadcastMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Message)
	}
	assert.Equal(t, 1, f.messages.gets)

	_, err = f.svc.SetBroadcastMessage(ctx, "bye")
	require.NoError(t, err)
	msg, err := f.svc.GetBroadcastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bye", msg.Message)
	assert.Equal(t, 1, f.messages.gets)
}

// racingMessageRepository replaces the message while a read is in flight.
type racingMessageRepository struct {
	*fakeMessageRepository
	during func()
}

func (r *racingMessageRepository) Get(ctx context.Context) (*domain.PlatformMessage, error) {
	msg, err := r.fakeMessageRepository.Get(ctx)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return msg, err
}

func TestModerationService_BroadcastMessage_ConcurrentSetWinsOverFill(t *testing.T) {
	c := memory.NewCache(0)
	t.Cleanup(c.Stop)
	ctx := context.Background()

	messages := &racingMessageRepository{fakeMessageRepository: &fakeMessageRepository{}}
	userRepo := newFakeUserRepository()
	users := NewUserService(userRepo, repository.NoTx, plainAuth{}, &fakePhotos{}, lock.NewNoOpLocker(), nil, zerolog.Nop())
	swaps := NewSwapService(newFakeSwapRepository(), userRepo, repository.NoTx, SwapPolicy{}, nil, zerolog.Nop())
	svc := NewModerationService(users, swaps, userRepo, messages, repository.NoTx, c, nil, zerolog.Nop())

	require.NoError(t, messages.Set(ctx, &domain.PlatformMessage{Message: "old", UpdatedAt: testStart}))
	messages.during = func() {
		_, err := svc.SetBroadcastMessage(ctx, "new")
		require.NoError(t, err)
	}

	msg, err := svc.GetBroadcastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", msg.Message)

	msg, err = svc.GetBroadcastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", msg.Message)
	assert.Equal(t, 1, messages.gets)
}

func TestModerationService_BroadcastMessage_CacheFailures(t *testing.T) {
	key := repository.CacheKey{}.PlatformMessage()

	t.Run("unavailable cache falls back to the store", func(t *testing.T) {
		c := &mockCache{}
		c.On("Get", mock.Anything, key).Return(nil, repository.ErrCacheUnavailable)
		c.On("Set", mock.Anything, key, mock.Anything, messageCacheTTL).Return(repository.ErrCacheUnavailable)
		f := newModerationFixture(t, c)
		f.messages.msg = &domain.PlatformMessage{Message: "stored", UpdatedAt: testStart}

		msg, err := f.svc.GetBroadcastMessage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "stored", msg.Message)
		c.AssertExpectations(t)
	})

	t.Run("hit skips the store", func(t *testing.T) {
		cached, err := json.Marshal(domain.PlatformMessage{Message: "cached", UpdatedAt: testStart})
		require.NoError(t, err)

		c := &mockCache{}
		c.On("Get", mock.Anything, key).Return(cached, nil)
		f := newModerationFixture(t, c)

		msg, err := f.svc.GetBroadcastMessage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached", msg.Message)
		assert.True(t, msg.UpdatedAt.Equal(testStart))
		assert.Equal(t, 0, f.messages.gets)
		c.AssertExpectations(t)
	})

	t.Run("set succeeds when the cache rejects writes", func(t *testing.T) {
		c := &mockCache{}
		c.On("Set", mock.Anything, key, mock.Anything, messageCacheTTL).Return(repository.ErrCacheUnavailable).Once()
		c.On("Delete", mock.Anything, key).Return(repository.ErrCacheUnavailable).Once()
		f := newModerationFixture(t, c)

		msg, err := f.svc.SetBroadcastMessage(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "x", msg.Message)
		assert.WithinDuration(t, testStart, msg.UpdatedAt, time.Minute)
		c.AssertExpectations(t)
	})
}
