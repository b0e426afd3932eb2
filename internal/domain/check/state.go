// Package check implements the smallest unit of work the wizard engine
// schedules: one observable, resource-locked, cancellable operation with
// a result.
package check

// State represents the lifecycle of a single check.
type State int

const (
	// Waiting means the check has not started yet.
	Waiting State = iota
	// Running means the check body is executing.
	Running
	// Success means the check finished cleanly.
	Success
	// Warning means the check finished with non-fatal issues attached.
	Warning
	// Failure means the check body returned an error.
	Failure
	// Canceled means the check was canceled before or during execution.
	Canceled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Failure:
		return "failure"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final. Terminal states are
// sticky: once entered, the check never leaves them.
func (s State) Terminal() bool {
	switch s {
	case Success, Warning, Failure, Canceled:
		return true
	default:
		return false
	}
}
