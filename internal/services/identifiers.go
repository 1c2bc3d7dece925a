package services

import (
	"context"
	"errors"
	"strings"

	"festregistration/internal/domain"
)

// maxIdentifierAttempts bounds retries when a concurrent writer took the PID
// or TID computed for this insert.
const maxIdentifierAttempts = 5

// retryOnCollision runs insert until it succeeds, fails with an error other
// than collision, or the attempts run out.
func retryOnCollision(ctx context.Context, collision error, insert func() error) error {
	var err error
	for attempt := 0; attempt < maxIdentifierAttempts; attempt++ {
		if err = insert(); !errors.Is(err, collision) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func validationError(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return domain.NewError(domain.KindValidation, "%s", strings.Join(msgs, "; "))
}
