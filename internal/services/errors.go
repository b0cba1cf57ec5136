package services

import (
	"database/sql"
	"errors"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrWorker            = errors.New("worker failed")
	ErrDuplicate         = repos.ErrDuplicate
	ErrInvalidTransition = domain.ErrInvalidTransition
)

// notFound folds sql.ErrNoRows into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
