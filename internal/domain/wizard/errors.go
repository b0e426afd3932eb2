package wizard

import (
	"errors"
	"fmt"
)

// ErrNotCancelable is returned by Cancel on a wizard that declares
// itself non-cancelable. ForceCancel is not gated by it.
var ErrNotCancelable = errors.New("wizard is not cancelable")

// ErrAlreadyRun is returned when Run is called a second time. A wizard
// runs once and is not restartable.
var ErrAlreadyRun = errors.New("wizard already run")

// PersistenceError wraps a failure to save result data. It is raised
// only after the procedure's substantive work is complete, so callers
// can tell "the wizard did not do its job" from "the wizard did its job
// but could not save the receipt".
type PersistenceError struct {
	Wizard ID
	Err    error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s results: %v", e.Wizard, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error { return e.Err }
