// internal/wizard/errors.go
package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongStartPage aborts a run: the browser is not on the entry page.
	ErrWrongStartPage = errors.New("wizard: browser is not on the wage statement entry page")
	// ErrValidationRejected means the site refused the identification data.
	ErrValidationRejected = errors.New("wizard: identification rejected by the site")
	// ErrRecalculationFailed means the recalculation modal was not the success message.
	ErrRecalculationFailed = errors.New("wizard: recalculation failed")
	// ErrSubmissionFailed means the final add did not report success or duplicate.
	ErrSubmissionFailed = errors.New("wizard: submission failed")
	// ErrModalTimeout means an expected modal did not open within its bound.
	ErrModalTimeout = errors.New("wizard: timed out waiting for modal")
)

// StepError wraps a failure with the step it happened in and the modal text
// that caused it, if any.
type StepError struct {
	Step  Step
	Modal string
	Err   error
}

func (e *StepError) Error() string {
	if e.Modal != "" {
		return fmt.Sprintf("%s step: %v: %q", e.Step, e.Err, e.Modal)
	}
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
