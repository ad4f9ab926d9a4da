package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/lock"
	"github.com/prn-tf/skillswap/internal/repository"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestUserService(t *testing.T) (*UserService, *fakeUserRepository, *fakePhotos) {
	t.Helper()
	repo := newFakeUserRepository()
	photos := &fakePhotos{ref: "abc.png"}
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)

	svc := NewUserService(repo, repository.NoTx, plainAuth{}, photos, locker, nil, zerolog.Nop())
	svc.now = fixedClock(testStart)
	return svc, repo, photos
}

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name      string
		input     CreateUserInput
		setupRepo func(*fakeUserRepository)
		wantErr   error
	}{
		{
			name:  "success with defaults",
			input: CreateUserInput{Name: "alice", Password: "x"},
		},
		{
			name:    "missing name",
			input:   CreateUserInput{Password: "x"},
			wantErr: domain.ErrMissingFields,
		},
		{
			name:    "missing password",
			input:   CreateUserInput{Name: "alice"},
			wantErr: domain.ErrMissingFields,
		},
		{
			name:  "name taken",
			input: CreateUserInput{Name: "alice", Password: "x"},
			setupRepo: func(r *fakeUserRepository) {
				_ = r.Create(context.Background(), domain.NewUser("alice", "h", domain.ProfileFields{}, testStart))
			},
			wantErr: domain.ErrUsernameTaken,
		},
		{
			name:  "names are case sensitive",
			input: CreateUserInput{Name: "Alice", Password: "x"},
			setupRepo: func(r *fakeUserRepository) {
				_ = r.Create(context.Background(), domain.NewUser("alice", "h", domain.ProfileFields{}, testStart))
			},
		},
		{
			name:      "storage failure",
			input:     CreateUserInput{Name: "alice", Password: "x"},
			setupRepo: func(r *fakeUserRepository) { r.createErr = errBoom },
			wantErr:   domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestUserService(t)
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}

			user, err := svc.CreateUser(context.Background(), tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.input.Name, user.Name)
			assert.True(t, user.IsPublic)
			assert.False(t, user.IsAdmin)
			assert.False(t, user.IsBanned)
			assert.Equal(t, domain.DefaultTheme, user.Theme)
			assert.Equal(t, []string{}, user.SkillsOffered)
			assert.Equal(t, "plain:x", user.PasswordHash)
		})
	}
}

func TestUserService_CreateUser_DuplicateLeavesOneRow(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "y"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, repo.countByName("alice"))
}

func TestUserService_CreateUser_Concurrent(t *testing.T) {
	svc, repo, _ := newTestUserService(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "race", Password: "x"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.Kind(err) == domain.ErrConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, repo.countByName("race"))
}

func TestUserService_CreateUser_SkillOrderPreserved(t *testing.T) {
	svc, _, _ := newTestUserService(t)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name:          "alice",
		Password:      "x",
		SkillsOffered: []string{"c", "a", "b", "a"},
		SkillsWanted:  []string{"rust, go"},
		IsPublic:      ptr(false),
	})
	require.NoError(t, err)

	got, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "a"}, got.SkillsOffered)
	assert.Equal(t, []string{"rust, go"}, got.SkillsWanted)
	assert.False(t, got.IsPublic)
}

func TestUserService_Authenticate(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "secret"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		user     string
		password string
		wantErr  error
	}{
		{name: "success", user: "alice", password: "secret"},
		{name: "wrong password", user: "alice", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", user: "bob", password: "secret", wantErr: domain.ErrInvalidCredentials},
		{name: "missing password", user: "alice", password: "", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.user, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.ErrInvalidCredentials.Error(), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alice.ID, user.ID)
		})
	}

	t.Run("banned user can still log in", func(t *testing.T) {
		require.NoError(t, repo.SetBanned(ctx, alice.ID, true))
		user, err := svc.Authenticate(ctx, "alice", "secret")
		require.NoError(t, err)
		assert.True(t, user.IsBanned)
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps absent fields", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		user, err := svc.CreateUser(ctx, CreateUserInput{
			Name: "alice", Password: "x", Location: "Berlin", SkillsOffered: []string{"go"},
		})
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, user.ID, domain.ProfilePatch{
			Availability: ptr("weekends"),
			SkillsWanted: ptr([]string{"rust", "zig"}),
		})
		require.NoError(t, err)
		assert.Equal(t, "Berlin", updated.Location)
		assert.Equal(t, "weekends", updated.Availability)
		assert.Equal(t, []string{"go"}, updated.SkillsOffered)
		assert.Equal(t, []string{"rust", "zig"}, updated.SkillsWanted)
		assert.Equal(t, "alice", updated.Name)
	})

	t.Run("rename to taken name conflicts", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		_, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)
		bob, err := svc.CreateUser(ctx, CreateUserInput{Name: "bob", Password: "x"})
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, bob.ID, domain.ProfilePatch{Name: ptr("alice")})
		require.ErrorIs(t, err, domain.ErrUsernameTaken)

		got, err := svc.GetProfile(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Name)
	})

	t.Run("rename to own name is allowed", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{Name: ptr("alice"), Theme: ptr("dark")})
		require.NoError(t, err)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{Name: ptr("")})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		_, err := svc.UpdateProfile(ctx, "missing", domain.ProfilePatch{Location: ptr("x")})
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("photo upload wins over reference", func(t *testing.T) {
		svc, _, photos := newTestUserService(t)
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{
			PhotoRef: ptr("ignored.png"),
			Photo:    &domain.PhotoUpload{Filename: "me.png", Content: bytes.NewReader([]byte("png"))},
		})
		require.NoError(t, err)
		assert.Equal(t, "abc.png", updated.ProfilePhotoRef)
		assert.Equal(t, []byte("png"), photos.seen)
	})

	t.Run("rejected photo leaves profile unchanged", func(t *testing.T) {
		svc, _, photos := newTestUserService(t)
		photos.err = domain.ErrRejectedType
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)

		_, err = svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{
			Location: ptr("Paris"),
			Photo:    &domain.PhotoUpload{Filename: "me.exe", Content: bytes.NewReader(nil)},
		})
		require.ErrorIs(t, err, domain.ErrRejectedType)

		got, err := svc.GetProfile(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Location)
	})

	t.Run("no photo input keeps existing reference", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
		require.NoError(t, err)
		_, err = svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{PhotoRef: ptr("old.png")})
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{Theme: ptr("dark")})
		require.NoError(t, err)
		assert.Equal(t, "old.png", updated.ProfilePhotoRef)
	})

	t.Run("empty patch returns the profile without writing", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x", Location: "Berlin"})
		require.NoError(t, err)

		got, err := svc.UpdateProfile(ctx, alice.ID, domain.ProfilePatch{})
		require.NoError(t, err)
		assert.Equal(t, "Berlin", got.Location)
		assert.Equal(t, 0, repo.updates)

		_, err = svc.UpdateProfile(ctx, "missing", domain.ProfilePatch{})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserService_SetBanned(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserInput{Name: "alice", Password: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.SetBanned(ctx, alice.ID, true))
	got, err := svc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)

	require.ErrorIs(t, svc.SetBanned(ctx, "missing", true), domain.ErrNotFound)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "adminpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin", "adminpass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, repo.countByName("admin"))

	admin, err := svc.Authenticate(ctx, "admin", "adminpass")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.False(t, admin.IsPublic)

	_, err = svc.EnsureAdmin(ctx, "", "x")
	require.ErrorIs(t, err, domain.ErrMissingFields)
}
