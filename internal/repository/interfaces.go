// Package repository defines data access interfaces for the skill-swap marketplace.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/skillswap/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrUsernameTaken if the name is already in use.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByName retrieves a user by exact (case-sensitive) name.
	GetByName(ctx context.Context, name string) (*domain.User, error)

	// Update replaces all mutable profile fields of an existing user.
	Update(ctx context.Context, user *domain.User) error

	// SetBanned updates the ban flag only.
	SetBanned(ctx context.Context, id string, banned bool) error

	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)

	// ListPublic returns users with is_public set and is_banned cleared,
	// ordered by creation time.
	ListPublic(ctx context.Context) ([]*domain.User, error)

	// ExistsByName checks if a user with the given name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// =============================================================================
// Swap Request Repository
// =============================================================================

// SwapRequestRepository defines the interface for swap request data access.
type SwapRequestRepository interface {
	// Create stores a new swap request.
	Create(ctx context.Context, req *domain.SwapRequest) error

	// GetByID retrieves a swap request by ID.
	GetByID(ctx context.Context, id string) (*domain.SwapRequest, error)

	// ListByUser returns requests where the user is sender or receiver, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.SwapRequest, error)

	// List returns all requests, newest first.
	List(ctx context.Context) ([]*domain.SwapRequest, error)

	// UpdateStatus sets the status of a request and its updated-at time.
	// Returns domain.ErrSwapRequestNotFound if no row matched.
	UpdateStatus(ctx context.Context, id string, status domain.SwapStatus, at time.Time) error

	// UpdateStatusFrom sets the status only while the request still holds from,
	// in a single conditional write. Returns domain.ErrSwapRequestNotFound if
	// the request does not exist and an ErrInvalidStatus error if it has left from.
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.SwapStatus, at time.Time) error

	// Delete hard-deletes a request.
	// Returns domain.ErrSwapRequestNotFound if no row matched.
	Delete(ctx context.Context, id string) error
}

// =============================================================================
// Feedback Repository
// =============================================================================

// FeedbackRepository defines the interface for the append-only feedback ledger.
type FeedbackRepository interface {
	// Create appends a feedback entry.
	Create(ctx context.Context, fb *domain.Feedback) error

	// List returns all feedback, newest first.
	List(ctx context.Context) ([]*domain.Feedback, error)
}

// =============================================================================
// Platform Message Repository
// =============================================================================

// PlatformMessageRepository stores the single current broadcast message.
type PlatformMessageRepository interface {
	// Set replaces the current message.
	Set(ctx context.Context, msg *domain.PlatformMessage) error

	// Get returns the current message, or nil if none was ever set.
	Get(ctx context.Context) (*domain.PlatformMessage, error)
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management.
// Repositories pick up the transaction from the context passed to fn, so every
// repository call made with that context joins the same transaction.
type TxManager interface {
	// WithTx executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxFunc adapts a function to TxManager.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// WithTx calls f.
func (f TxFunc) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTx runs fn directly without a transaction. Used by in-memory fakes.
var NoTx TxManager = TxFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
