package wizard

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State is the externally observable wizard state. Base lifecycle
// states come from the state machine; interaction states overlay them
// from the top of the user action broker's stack.
type State string

const (
	// StateInit is the state before Run is called.
	StateInit State = "init"
	// StateRunning means phases are executing.
	StateRunning State = "running"
	// StateDone means every phase completed without error.
	StateDone State = "done"
	// StateFailed means a phase raised an error.
	StateFailed State = "failed"
	// StateCanceled means cancellation propagated from a phase.
	StateCanceled State = "canceled"
	// StateStopped is reserved for the recoverable-pause retry protocol,
	// which is currently disabled. Nothing transitions into it.
	StateStopped State = "stopped"
)

// Events driving the wizard lifecycle machine.
const (
	eventRun    = "RUN"
	eventFinish = "FINISH"
	eventFail   = "FAIL"
	eventCancel = "CANCEL"
	eventStop   = "STOP"
)

// machineContext carries no data; the wizard keeps its own bookkeeping
// under its mutex.
type machineContext struct{}

// buildLifecycle constructs the base wizard state machine. The STOP
// transition is declared to keep the machine's shape stable, but no
// live code path sends it.
func buildLifecycle(id ID) (*statekit.Interpreter[machineContext], error) {
	machine, err := statekit.NewMachine[machineContext](fmt.Sprintf("wizard-%s", id)).
		WithInitial(statekit.StateID(StateInit)).
		WithContext(machineContext{}).
		State(statekit.StateID(StateInit)).
		On(eventRun).Target(statekit.StateID(StateRunning)).Done().
		State(statekit.StateID(StateRunning)).
		On(eventFinish).Target(statekit.StateID(StateDone)).
		On(eventFail).Target(statekit.StateID(StateFailed)).
		On(eventCancel).Target(statekit.StateID(StateCanceled)).
		On(eventStop).Target(statekit.StateID(StateStopped)).Done().
		State(statekit.StateID(StateDone)).Done().
		State(statekit.StateID(StateFailed)).Done().
		State(statekit.StateID(StateCanceled)).Done().
		State(statekit.StateID(StateStopped)).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build wizard state machine: %w", err)
	}
	return statekit.NewInterpreter(machine), nil
}
