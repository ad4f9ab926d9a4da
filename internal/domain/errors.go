package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by a service belongs to exactly one kind,
// which transports use to pick a status code.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates an unknown user or request id.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates bad credentials or a missing/invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without the required capability.
	ErrForbidden = errors.New("forbidden")

	// ErrStorage indicates an underlying persistence failure.
	ErrStorage = errors.New("storage error")
)

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = NewKindError(ErrNotFound, "user not found")

	// ErrUsernameTaken indicates another user already has the name.
	ErrUsernameTaken = NewKindError(ErrConflict, "username already exists")

	// ErrInvalidCredentials indicates authentication failed. It is returned for
	// both unknown users and wrong passwords.
	ErrInvalidCredentials = NewKindError(ErrUnauthorized, "invalid username or password")

	// ErrAdminRequired indicates the caller is not an administrator.
	ErrAdminRequired = NewKindError(ErrForbidden, "admin privileges required")

	// ErrNotOwner indicates the caller may not modify another user's data.
	ErrNotOwner = NewKindError(ErrForbidden, "not allowed to modify this resource")

	// ===========================================
	// Swap Request Errors
	// ===========================================

	// ErrSwapRequestNotFound indicates the requested swap request does not exist.
	ErrSwapRequestNotFound = NewKindError(ErrNotFound, "swap request not found")

	// ErrInvalidStatus indicates a status value or transition that is not allowed.
	ErrInvalidStatus = NewKindError(ErrValidation, "invalid status")

	// ===========================================
	// Feedback Errors
	// ===========================================

	// ErrInvalidRating indicates the rating lies outside the configured scale.
	ErrInvalidRating = NewKindError(ErrValidation, "invalid rating")

	// ===========================================
	// Input Errors
	// ===========================================

	// ErrMissingFields indicates required input is absent or empty.
	ErrMissingFields = NewKindError(ErrValidation, "missing required fields")

	// ErrRejectedType indicates an upload whose type is not allowed.
	ErrRejectedType = NewKindError(ErrValidation, "invalid file type for profile photo")

	// ErrPhotoTooLarge indicates an upload over the size limit.
	ErrPhotoTooLarge = NewKindError(ErrValidation, "profile photo is too large")

	// ===========================================
	// Blob Errors
	// ===========================================

	// ErrBlobNotFound indicates the requested blob does not exist.
	ErrBlobNotFound = NewKindError(ErrNotFound, "blob not found")
)

// KindError is a named error that belongs to one of the error kinds.
type KindError struct {
	kind error
	msg  string
}

// NewKindError creates a named error of the given kind.
func NewKindError(kind error, msg string) *KindError {
	return &KindError{kind: kind, msg: msg}
}

// Error implements the error interface.
func (e *KindError) Error() string {
	return e.msg
}

// Unwrap returns the kind so errors.Is(err, ErrConflict) works.
func (e *KindError) Unwrap() error {
	return e.kind
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., user id, request id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// Kind returns the error kind for err, or ErrStorage when err does not belong
// to any known kind.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrUnauthorized, ErrForbidden, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrStorage
}
