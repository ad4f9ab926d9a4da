package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

// platformMessageRepository implements repository.PlatformMessageRepository for SQLite.
// The table holds at most one row, keyed by id 1.
type platformMessageRepository struct {
	db *DB
}

// NewPlatformMessageRepository creates a new SQLite platform message repository.
func NewPlatformMessageRepository(db *DB) repository.PlatformMessageRepository {
	return &platformMessageRepository{db: db}
}

// Set replaces the current message.
func (r *platformMessageRepository) Set(ctx context.Context, msg *domain.PlatformMessage) error {
	query := `
		INSERT INTO platform_messages (id, message, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET message = excluded.message, updated_at = excluded.updated_at
	`

	if _, err := r.db.conn(ctx).ExecContext(ctx, query, msg.Message, toNanos(msg.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to set platform message: %w", err)
	}
	return nil
}

// Get returns the current message, or nil if none was ever set.
func (r *platformMessageRepository) Get(ctx context.Context) (*domain.PlatformMessage, error) {
	msg := &domain.PlatformMessage{}
	var updatedAt int64

	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT message, updated_at FROM platform_messages WHERE id = 1`,
	).Scan(&msg.Message, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get platform message: %w", err)
	}

	msg.UpdatedAt = fromNanos(updatedAt)
	return msg, nil
}

// Ensure platformMessageRepository implements repository.PlatformMessageRepository.
var _ repository.PlatformMessageRepository = (*platformMessageRepository)(nil)
