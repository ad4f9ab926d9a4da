package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

// feedbackRepository implements repository.FeedbackRepository for SQLite.
type feedbackRepository struct {
	db *DB
}

// NewFeedbackRepository creates a new SQLite feedback repository.
func NewFeedbackRepository(db *DB) repository.FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Create appends a feedback entry.
func (r *feedbackRepository) Create(ctx context.Context, fb *domain.Feedback) error {
	query := `
		INSERT INTO feedback (id, swap_request_id, giver_id, receiver_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		fb.ID,
		fb.SwapRequestID,
		fb.GiverID,
		fb.ReceiverID,
		fb.Rating,
		fb.Comment,
		toNanos(fb.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

// List returns all feedback, newest first.
func (r *feedbackRepository) List(ctx context.Context) ([]*domain.Feedback, error) {
	query := `
		SELECT id, swap_request_id, giver_id, receiver_id, rating, comment, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	entries := []*domain.Feedback{}
	for rows.Next() {
		fb := &domain.Feedback{}
		var createdAt int64
		if err := rows.Scan(&fb.ID, &fb.SwapRequestID, &fb.GiverID, &fb.ReceiverID, &fb.Rating, &fb.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.CreatedAt = fromNanos(createdAt)
		entries = append(entries, fb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return entries, nil
}

// Ensure feedbackRepository implements repository.FeedbackRepository.
var _ repository.FeedbackRepository = (*feedbackRepository)(nil)
