package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

const userColumns = `id, name, password_hash, location, availability, skills_offered, skills_wanted,
	is_public, is_admin, is_banned, profile_photo, theme, created_at`

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var isPublic, isAdmin, isBanned int
	var offered, wanted string
	var createdAt int64

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.PasswordHash,
		&user.Location,
		&user.Availability,
		&offered,
		&wanted,
		&isPublic,
		&isAdmin,
		&isBanned,
		&user.ProfilePhotoRef,
		&user.Theme,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if user.SkillsOffered, err = decodeSkills(offered); err != nil {
		return nil, err
	}
	if user.SkillsWanted, err = decodeSkills(wanted); err != nil {
		return nil, err
	}
	user.IsPublic = isPublic != 0
	user.IsAdmin = isAdmin != 0
	user.IsBanned = isBanned != 0
	user.CreatedAt = fromNanos(createdAt)

	return user, nil
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	offered, err := encodeSkills(user.SkillsOffered)
	if err != nil {
		return err
	}
	wanted, err := encodeSkills(user.SkillsWanted)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.conn(ctx).ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.Location,
		user.Availability,
		offered,
		wanted,
		boolToInt(user.IsPublic),
		boolToInt(user.IsAdmin),
		boolToInt(user.IsBanned),
		user.ProfilePhotoRef,
		user.Theme,
		toNanos(user.CreatedAt),
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
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.conn(ctx).QueryRowContext(ctx, query, id))
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
	query := `SELECT ` + userColumns + ` FROM users WHERE name = ?`

	user, err := scanUser(r.db.conn(ctx).QueryRowContext(ctx, query, name))
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
	offered, err := encodeSkills(user.SkillsOffered)
	if err != nil {
		return err
	}
	wanted, err := encodeSkills(user.SkillsWanted)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET name = ?, location = ?, availability = ?, skills_offered = ?, skills_wanted = ?,
		    is_public = ?, profile_photo = ?, theme = ?
		WHERE id = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		user.Name,
		user.Location,
		user.Availability,
		offered,
		wanted,
		boolToInt(user.IsPublic),
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

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// SetBanned updates the ban flag of a user.
func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE users SET is_banned = ? WHERE id = ?`, boolToInt(banned), id)
	if err != nil {
		return fmt.Errorf("failed to update ban flag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
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
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_public = 1 AND is_banned = 0 ORDER BY created_at, id`)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
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
	var count int
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check name existence: %w", err)
	}
	return count > 0, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
