package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

// platformMessageRepository implements repository.PlatformMessageRepository for PostgreSQL.
type platformMessageRepository struct {
	db *DB
}

// NewPlatformMessageRepository creates a new PostgreSQL platform message repository.
func NewPlatformMessageRepository(db *DB) repository.PlatformMessageRepository {
	return &platformMessageRepository{db: db}
}

// Set replaces the current message.
func (r *platformMessageRepository) Set(ctx context.Context, msg *domain.PlatformMessage) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO platform_messages (id, message, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET message = EXCLUDED.message, updated_at = EXCLUDED.updated_at
	`, msg.Message, msg.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set platform message: %w", err)
	}
	return nil
}

// Get returns the current message, or nil if none was ever set.
func (r *platformMessageRepository) Get(ctx context.Context) (*domain.PlatformMessage, error) {
	msg := &domain.PlatformMessage{}
	var updatedAt int64

	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT message, updated_at FROM platform_messages WHERE id = 1`,
	).Scan(&msg.Message, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get platform message: %w", err)
	}

	msg.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return msg, nil
}

// Ensure platformMessageRepository implements repository.PlatformMessageRepository.
var _ repository.PlatformMessageRepository = (*platformMessageRepository)(nil)
