// Package service implements the deployment and template use cases on top of
// the store and the event bus.
package service

import (
	"errors"
	"fmt"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/shell/store"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// translate maps store and domain errors onto the service sentinels while
// keeping the original error in the chain. Anything else passes through.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrDuplicateID):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return err
	}
}
