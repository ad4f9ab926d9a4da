package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/repository"
)

const swapColumns = `id, sender_id, sender_name, receiver_id, receiver_name, skill_offered, skill_wanted,
	status, created_at, updated_at`

// swapRequestRepository implements repository.SwapRequestRepository for PostgreSQL.
type swapRequestRepository struct {
	db *DB
}

// NewSwapRequestRepository creates a new PostgreSQL swap request repository.
func NewSwapRequestRepository(db *DB) repository.SwapRequestRepository {
	return &swapRequestRepository{db: db}
}

func scanSwapRequest(row pgx.Row) (*domain.SwapRequest, error) {
	req := &domain.SwapRequest{}
	var status string
	var createdAt, updatedAt int64

	err := row.Scan(
		&req.ID,
		&req.SenderID,
		&req.SenderName,
		&req.ReceiverID,
		&req.ReceiverName,
		&req.SkillOffered,
		&req.SkillWanted,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = domain.SwapStatus(status)
	req.CreatedAt = time.Unix(0, createdAt).UTC()
	req.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return req, nil
}

// Create stores a new swap request.
func (r *swapRequestRepository) Create(ctx context.Context, req *domain.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (` + swapColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.conn(ctx).Exec(ctx, query,
		req.ID,
		req.SenderID,
		req.SenderName,
		req.ReceiverID,
		req.ReceiverName,
		req.SkillOffered,
		req.SkillWanted,
		string(req.Status),
		req.CreatedAt.UnixNano(),
		req.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create swap request: %w", err)
	}
	return nil
}

// GetByID retrieves a swap request by ID.
func (r *swapRequestRepository) GetByID(ctx context.Context, id string) (*domain.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM swap_requests WHERE id = $1`

	req, err := scanSwapRequest(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSwapRequestNotFound
		}
		return nil, fmt.Errorf("failed to get swap request: %w", err)
	}
	return req, nil
}

// ListByUser returns requests where the user is sender or receiver, newest first.
func (r *swapRequestRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SwapRequest, error) {
	query := `
		SELECT ` + swapColumns + ` FROM swap_requests
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// List returns all requests, newest first.
func (r *swapRequestRepository) List(ctx context.Context) ([]*domain.SwapRequest, error) {
	return r.list(ctx, `SELECT `+swapColumns+` FROM swap_requests ORDER BY created_at DESC, id DESC`)
}

func (r *swapRequestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.SwapRequest, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list swap requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.SwapRequest{}
	for rows.Next() {
		req, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swap requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus sets the status of a request and bumps updated_at.
func (r *swapRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.SwapStatus, at time.Time) error {
	tag, err := r.db.conn(ctx).Exec(ctx,
		`UPDATE swap_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), at.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update swap request status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSwapRequestNotFound
	}
	return nil
}

// UpdateStatusFrom sets the status only if the row still holds from.
func (r *swapRequestRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.SwapStatus, at time.Time) error {
	conn := r.db.conn(ctx)
	tag, err := conn.Exec(ctx,
		`UPDATE swap_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at.UnixNano(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update swap request status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := conn.QueryRow(ctx, `SELECT status FROM swap_requests WHERE id = $1`, id).Scan(&current); err != nil {
		if isNoRows(err) {
			return domain.ErrSwapRequestNotFound
		}
		return fmt.Errorf("failed to read swap request status: %w", err)
	}
	return domain.NewDomainError(domain.ErrInvalidStatus, "request is already "+current, id)
}

// Delete hard-deletes a request.
func (r *swapRequestRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM swap_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete swap request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSwapRequestNotFound
	}
	return nil
}

// Ensure swapRequestRepository implements repository.SwapRequestRepository.
var _ repository.SwapRequestRepository = (*swapRequestRepository)(nil)
