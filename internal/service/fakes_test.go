package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
	"github.com/prn-tf/skillswap/internal/repository"
)

var errBoom = errors.New("disk on fire")

// =============================================================================
// Users
// =============================================================================

// fakeUserRepository is a map-backed repository.UserRepository. It does not
// enforce name uniqueness so tests observe the service's own guarantees.
type fakeUserRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	order     []string
	updates   int
	createErr error
	listErr   error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.SkillsOffered = append([]string{}, u.SkillsOffered...)
	c.SkillsWanted = append([]string{}, u.SkillsWanted...)
	return &c
}

func (f *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.users[user.ID] = copyUser(user)
	f.order = append(f.order, user.ID)
	return nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepository) GetByName(_ context.Context, name string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepository) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	f.updates++
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeUserRepository) SetBanned(_ context.Context, id string, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

func (f *fakeUserRepository) List(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.User, 0, len(f.order))
	for _, id := range f.order {
		if u, ok := f.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (f *fakeUserRepository) ListPublic(ctx context.Context) ([]*domain.User, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if u.IsPublic && !u.IsBanned {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepository) countByName(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		if u.Name == name {
			n++
		}
	}
	return n
}

// =============================================================================
// Swap requests
// =============================================================================

type fakeSwapRepository struct {
	mu        sync.Mutex
	reqs      map[string]*domain.SwapRequest
	updateErr error
}

func newFakeSwapRepository() *fakeSwapRepository {
	return &fakeSwapRepository{reqs: make(map[string]*domain.SwapRequest)}
}

func (f *fakeSwapRepository) Create(_ context.Context, req *domain.SwapRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *req
	f.reqs[req.ID] = &c
	return nil
}

func (f *fakeSwapRepository) GetByID(_ context.Context, id string) (*domain.SwapRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reqs[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, domain.ErrSwapRequestNotFound
}

func (f *fakeSwapRepository) sorted(keep func(*domain.SwapRequest) bool) []*domain.SwapRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.SwapRequest{}
	for _, r := range f.reqs {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeSwapRepository) ListByUser(_ context.Context, userID string) ([]*domain.SwapRequest, error) {
	return f.sorted(func(r *domain.SwapRequest) bool { return r.Involves(userID) }), nil
}

func (f *fakeSwapRepository) List(_ context.Context) ([]*domain.SwapRequest, error) {
	return f.sorted(func(*domain.SwapRequest) bool { return true }), nil
}

func (f *fakeSwapRepository) UpdateStatus(_ context.Context, id string, status domain.SwapStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	r, ok := f.reqs[id]
	if !ok {
		return domain.ErrSwapRequestNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	return nil
}

func (f *fakeSwapRepository) UpdateStatusFrom(_ context.Context, id string, from, to domain.SwapStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	r, ok := f.reqs[id]
	if !ok {
		return domain.ErrSwapRequestNotFound
	}
	if r.Status != from {
		return domain.NewDomainError(domain.ErrInvalidStatus, "request is already "+string(r.Status), id)
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

func (f *fakeSwapRepository) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reqs[id]; !ok {
		return domain.ErrSwapRequestNotFound
	}
	delete(f.reqs, id)
	return nil
}

// =============================================================================
// Feedback and platform message
// =============================================================================

type fakeFeedbackRepository struct {
	mu        sync.Mutex
	entries   []*domain.Feedback
	createErr error
}

func (f *fakeFeedbackRepository) Create(_ context.Context, fb *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c := *fb
	f.entries = append(f.entries, &c)
	return nil
}

func (f *fakeFeedbackRepository) List(_ context.Context) ([]*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Feedback, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		c := *f.entries[i]
		out = append(out, &c)
	}
	return out, nil
}

type fakeMessageRepository struct {
	mu   sync.Mutex
	msg  *domain.PlatformMessage
	gets int
}

func (f *fakeMessageRepository) Set(_ context.Context, msg *domain.PlatformMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *msg
	f.msg = &c
	return nil
}

func (f *fakeMessageRepository) Get(_ context.Context) (*domain.PlatformMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.msg == nil {
		return nil, nil
	}
	c := *f.msg
	return &c, nil
}

// =============================================================================
// Collaborators
// =============================================================================

// plainAuth stores passwords with a visible prefix so tests stay fast.
type plainAuth struct{}

func (plainAuth) Hash(secret string) (string, error) { return "plain:" + secret, nil }

func (plainAuth) Verify(hash, secret string) error {
	if hash != "plain:"+secret {
		return crypto.ErrPasswordMismatch
	}
	return nil
}

type fakePhotos struct {
	ref  string
	err  error
	seen []byte
}

func (f *fakePhotos) Save(_ context.Context, upload *domain.PhotoUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return "", err
	}
	f.seen = data
	return f.ref, nil
}

// mockCache is a testify mock of repository.Cache.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

var _ repository.Cache = (*mockCache)(nil)

// fixedClock returns a clock that advances by one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func ptr[T any](v T) *T { return &v }

func upper(s string) string { return strings.ToUpper(s) }
