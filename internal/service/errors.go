// Package service provides the business logic of the skill-swap marketplace.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prn-tf/skillswap/internal/domain"
)

// wrapStorage returns err unchanged when it already belongs to a domain
// kind and otherwise marks it as a storage failure.
func wrapStorage(err error, op string) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrConflict,
		domain.ErrNotFound,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrStorage,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// missing builds a validation error naming the absent fields.
func missing(fields ...string) error {
	return domain.NewDomainError(domain.ErrMissingFields, strings.Join(fields, ", "), "")
}
