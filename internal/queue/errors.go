package queue

import (
	"errors"
	"fmt"

	"plexconverter/internal/services"
)

var (
	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = fmt.Errorf("%w: job", services.ErrNotFound)
	// ErrInvalidTransition is returned when a job is not in the state an operation requires.
	ErrInvalidTransition = fmt.Errorf("%w: invalid job transition", services.ErrConflict)
)

// wrapStorage tags unclassified failures as storage errors and leaves
// not-found, conflict, and validation errors classified as they are.
func wrapStorage(op string, err error) error {
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrConflict) || errors.Is(err, services.ErrValidation) {
		return fmt.Errorf("queue %s: %w", op, err)
	}
	return services.Wrap(services.ErrStorage, "queue", op, "", err)
}
