// internal/wizard/driver.go
package wizard

import (
	"context"
	"time"
)

// Driver is the page capability the controller drives. Element arguments are
// page element IDs resolved from the Elements table; lookups happen in the
// current context (the working frame after SwitchToWorkingFrame).
type Driver interface {
	// SetField clears an input and types value into it.
	SetField(ctx context.Context, id, value string) error
	Click(ctx context.Context, id string) error
	// SelectOption picks the option of a select element by its visible text.
	SelectOption(ctx context.Context, id, visibleText string) error
	IsChecked(ctx context.Context, id string) (bool, error)
	ReadText(ctx context.Context, id string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)

	SwitchToDefaultContext(ctx context.Context) error
	SwitchToWorkingFrame(ctx context.Context) error
	ScrollToTop(ctx context.Context) error

	// WaitForModal blocks until a modal dialog is open and returns its text.
	// It returns an error wrapping ErrModalTimeout when none appears in time.
	WaitForModal(ctx context.Context, timeout time.Duration) (string, error)
	AcceptModal(ctx context.Context) error
	DismissModal(ctx context.Context) error
}
