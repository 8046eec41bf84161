package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelector marks a step whose selector failed validation
	// before any target round-trip.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrUnknownCommand marks a step whose command name is not recognized.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTargetOperation wraps a failure raised by the target itself.
	ErrTargetOperation = errors.New("target operation failed")

	// ErrStrictAbort is returned by Execute when strict mode stops the run
	// after a failing step. The failing step's result is always recorded
	// before the abort.
	ErrStrictAbort = errors.New("strict mode abort")

	// ErrEngineBusy is returned when Execute is called while another run is
	// in flight on the same engine. A target supports one run at a time.
	ErrEngineBusy = errors.New("engine is busy")

	// ErrBadArgs marks a step whose arguments cannot be interpreted.
	ErrBadArgs = errors.New("bad step arguments")
)

// AssertionError is a failed assert step, carrying expected and actual for
// diagnostics.
type AssertionError struct {
	Check    string
	Selector string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("assertion %s failed for %q: expected %q, got %q",
			e.Check, e.Selector, e.Expected, e.Actual)
	}
	return fmt.Sprintf("assertion %s failed: expected %q, got %q", e.Check, e.Expected, e.Actual)
}
