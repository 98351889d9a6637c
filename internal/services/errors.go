package services

import (
	"errors"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
)

// translate converts repository errors into client-facing application
// errors. Errors that are already classified pass through unchanged.
func translate(err error, notFound string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, apperr.ErrConflict):
		return apperr.Conflict("Resource already exists")
	default:
		return apperr.Internal(err)
	}
}
