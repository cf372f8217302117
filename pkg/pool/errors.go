package pool

import (
	"fmt"

	"go.uber.org/multierr"
)

// PoolFailedError aggregates every checked failure observed during a
// delay_checks run, built with multierr so each member's error keeps
// its own type and can still be unwrapped individually.
type PoolFailedError struct {
	Failures []error
}

func (e *PoolFailedError) Error() string {
	return fmt.Sprintf("command pool: %d member(s) failed", len(e.Failures))
}

// Unwrap exposes the aggregate to errors.Is/As via multierr's combined
// error, so a caller can still test for a specific member failure type.
func (e *PoolFailedError) Unwrap() error {
	return multierr.Combine(e.Failures...)
}

func newPoolFailedError(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &PoolFailedError{Failures: failures}
}
