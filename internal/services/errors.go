package services

import (
	"context"
	"errors"

	"github.com/boostcampwm2025/ios02-damago/internal/apperr"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

// notFoundAs tags a missing document with a client facing message
func notFoundAs(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, what+" not found", err)
	}
	return err
}

// storeErr converts an error returned by a store call into a service error.
// Service errors raised inside a transaction pass through untouched.
func storeErr(err error, op string) error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "not found", err)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.KindUnavailable, "too many concurrent updates, try again", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindUnavailable, "request cancelled", err)
	}
	return apperr.Wrap(apperr.KindInternal, "failed to "+op, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
