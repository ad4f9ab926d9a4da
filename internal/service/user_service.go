package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/lock"
	"github.com/prn-tf/skillswap/internal/metrics"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
	"github.com/prn-tf/skillswap/internal/repository"
)

// AuthStore hashes and verifies credential material.
type AuthStore interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) error
}

// PhotoSaver stores an uploaded profile photo and returns its reference.
type PhotoSaver interface {
	Save(ctx context.Context, upload *domain.PhotoUpload) (string, error)
}

// UserService is the identity store: it owns user records.
type UserService struct {
	users      repository.UserRepository
	tx         repository.TxManager
	auth       AuthStore
	photos     PhotoSaver
	locker     lock.Locker
	lockPolicy lock.RetryPolicy
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(
	users repository.UserRepository,
	tx repository.TxManager,
	auth AuthStore,
	photos PhotoSaver,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		tx:         tx,
		auth:       auth,
		photos:     photos,
		locker:     locker,
		lockPolicy: lock.DefaultRetryPolicy,
		metrics:    m,
		logger:     logger.With().Str("service", "user").Logger(),
		now:        time.Now,
	}
}

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Name          string
	Password      string
	Location      string
	Availability  string
	SkillsOffered []string
	SkillsWanted  []string
	// IsPublic defaults to true when nil.
	IsPublic *bool
}

// CreateUser registers a new user. The name check and the insert run under a
// per-name lock inside one transaction; the unique index backs both up.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if input.Name == "" || input.Password == "" {
		return nil, domain.NewDomainError(domain.ErrMissingFields, "username and password are required", "")
	}

	hash, err := s.auth.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, wrapStorage(err, "hash password")
	}

	user := domain.NewUser(input.Name, hash, domain.ProfileFields{
		Location:      input.Location,
		Availability:  input.Availability,
		SkillsOffered: input.SkillsOffered,
		SkillsWanted:  input.SkillsWanted,
		IsPublic:      input.IsPublic,
	}, s.now())

	if err := s.insertUnique(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Debug().Str("name", input.Name).Msg("signup rejected, name taken")
		} else {
			s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create user")
		}
		return nil, err
	}

	s.metrics.IncrementUsersCreated()
	s.logger.Info().
		Str("user_id", user.ID).
		Str("name", user.Name).
		Bool("is_public", user.IsPublic).
		Msg("user created")

	return user, nil
}

// insertUnique inserts user if no other user holds its name.
func (s *UserService) insertUnique(ctx context.Context, user *domain.User) error {
	err := lock.WithLock(ctx, s.locker, lock.Keys.Username(user.Name), s.lockPolicy, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			exists, err := s.users.ExistsByName(ctx, user.Name)
			if err != nil {
				return err
			}
			if exists {
				return domain.NewDomainError(domain.ErrUsernameTaken, "name is in use", user.Name)
			}
			return s.users.Create(ctx, user)
		})
	})
	return wrapStorage(err, "create user")
}

// Authenticate verifies credentials. Unknown names and wrong passwords both
// yield domain.ErrInvalidCredentials; only the logs tell them apart.
// Banned users may still authenticate.
func (s *UserService) Authenticate(ctx context.Context, name, password string) (*domain.User, error) {
	if name == "" || password == "" {
		s.logger.Debug().Str("name", name).Msg("login with missing credentials")
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("name", name).Msg("user not found during authentication")
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to load user for authentication")
		return nil, wrapStorage(err, "authenticate")
	}

	if err := s.auth.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, crypto.ErrPasswordMismatch) {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to verify password")
		}
		s.logger.Debug().Str("name", name).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("name", user.Name).
		Msg("user authenticated")

	return user, nil
}

// GetProfile returns a user by id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		}
		return nil, wrapStorage(err, "get profile")
	}
	return user, nil
}

// UpdateProfile applies a partial update. Fields absent from patch keep
// their values. A new photo upload is stored before the update and wins over
// a caller-supplied reference.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, domain.NewDomainError(domain.ErrMissingFields, "name must not be empty", userID)
	}
	if patch.IsEmpty() {
		return s.GetProfile(ctx, userID)
	}

	if patch.Photo != nil {
		// Reject unknown users before touching blob storage.
		if _, err := s.GetProfile(ctx, userID); err != nil {
			return nil, err
		}
		ref, err := s.photos.Save(ctx, patch.Photo)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				s.logger.Debug().Err(err).Str("user_id", userID).Str("filename", patch.Photo.Filename).Msg("profile photo rejected")
			} else {
				s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to store profile photo")
			}
			return nil, wrapStorage(err, "store photo")
		}
		patch.PhotoRef = &ref
		patch.Photo = nil
	}

	var updated *domain.User
	update := func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			user, err := s.users.GetByID(ctx, userID)
			if err != nil {
				return err
			}

			if patch.Name != nil && *patch.Name != user.Name {
				exists, err := s.users.ExistsByName(ctx, *patch.Name)
				if err != nil {
					return err
				}
				if exists {
					return domain.NewDomainError(domain.ErrUsernameTaken, "name is in use", *patch.Name)
				}
			}

			user.Apply(patch)
			if err := s.users.Update(ctx, user); err != nil {
				return err
			}
			updated = user
			return nil
		})
	}

	var err error
	if patch.Name != nil {
		err = lock.WithLock(ctx, s.locker, lock.Keys.Username(*patch.Name), s.lockPolicy, update)
	} else {
		err = update(ctx)
	}
	if err != nil {
		if domain.Kind(err) == domain.ErrStorage {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to update profile")
		}
		return nil, wrapStorage(err, "update profile")
	}

	s.logger.Info().Str("user_id", userID).Msg("profile updated")
	return updated, nil
}

// SetBanned sets or clears the ban flag. Privilege checks belong to the caller.
func (s *UserService) SetBanned(ctx context.Context, userID string, banned bool) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.users.SetBanned(ctx, userID, banned)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to update ban flag")
		}
		return wrapStorage(err, "set banned")
	}

	s.metrics.IncrementUsersBanned(banned)
	s.logger.Info().Str("user_id", userID).Bool("banned", banned).Msg("ban flag updated")
	return nil
}

// EnsureAdmin creates the bootstrap administrator if no user has the name.
// It returns true when a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, password string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return false, domain.NewDomainError(domain.ErrMissingFields, "admin username and password are required", "")
	}

	exists, err := s.users.ExistsByName(ctx, name)
	if err != nil {
		return false, wrapStorage(err, "bootstrap admin")
	}
	if exists {
		s.logger.Debug().Str("name", name).Msg("bootstrap admin already present")
		return false, nil
	}

	hash, err := s.auth.Hash(password)
	if err != nil {
		return false, wrapStorage(err, "hash password")
	}

	isPublic := false
	admin := domain.NewUser(name, hash, domain.ProfileFields{IsPublic: &isPublic}, s.now())
	admin.IsAdmin = true

	err = lock.WithLock(ctx, s.locker, lock.Keys.Bootstrap(), s.lockPolicy, func(ctx context.Context) error {
		return s.insertUnique(ctx, admin)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create bootstrap admin")
		return false, wrapStorage(err, "bootstrap admin")
	}

	s.metrics.IncrementUsersCreated()
	s.logger.Info().Str("user_id", admin.ID).Str("name", admin.Name).Msg("bootstrap admin created")
	return true, nil
}
