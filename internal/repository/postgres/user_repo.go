package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

const userColumns = `id, name, password_hash, location, availability, skills_offered, skills_wanted,
	is_public, is_admin, is_banned, profile_photo, theme, created_at`

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var createdAt int64

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.PasswordHash,
		&user.Location,
		&user.Availability,
		&user.SkillsOffered,
		&user.SkillsWanted,
		&user.IsPublic,
		&user.IsAdmin,
		&user.IsBanned,
		&user.ProfilePhotoRef,
		&user.Theme,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	user.SkillsOffered = nonNilSkills(user.SkillsOffered)
	user.SkillsWanted = nonNilSkills(user.SkillsWanted)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return user, nil
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.conn(ctx).Exec(ctx, query,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.Location,
		user.Availability,
		nonNilSkills(user.SkillsOffered),
		nonNilSkills(user.SkillsWanted),
		user.IsPublic,
		user.IsAdmin,
		user.IsBanned,
		user.ProfilePhotoRef,
		user.Theme,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrUsernameTaken, "name is in use", user.Name)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByName retrieves a user by name.
func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1`

	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, name))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}
	return user, nil
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, location = $2, availability = $3, skills_offered = $4, skills_wanted = $5,
		    is_public = $6, profile_photo = $7, theme = $8
		WHERE id = $9
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query,
		user.Name,
		user.Location,
		user.Availability,
		nonNilSkills(user.SkillsOffered),
		nonNilSkills(user.SkillsWanted),
		user.IsPublic,
		user.ProfilePhotoRef,
		user.Theme,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrUsernameTaken, "name is in use", user.Name)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetBanned updates the ban flag of a user.
func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `UPDATE users SET is_banned = $1 WHERE id = $2`, banned, id)
	if err != nil {
		return fmt.Errorf("failed to update ban flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns all users.
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

// ListPublic returns discoverable users.
func (r *userRepository) ListPublic(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_public AND NOT is_banned ORDER BY created_at, id`)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ExistsByName checks if a user with the given name exists.
func (r *userRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name existence: %w", err)
	}
	return exists, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
