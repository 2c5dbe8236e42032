package service

import (
	"errors"
	"fmt"

	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("access denied")
	ErrStorageFailure = errors.New("storage failure")
	// ErrInvalidInput matches every *scoring.ValidationError.
	ErrInvalidInput = scoring.ErrInvalid
)

func invalid(format string, args ...any) error {
	return &scoring.ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// storageError maps a repository failure to the service vocabulary.
func storageError(err error, what string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
