// Package wizard sequences phases into one guided hardware procedure:
// it owns the lifecycle state machine, cancellation routing, the cover
// safety monitor, result aggregation and persistence.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/check"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/group"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/history"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// ID names a procedure, e.g. "self_test".
type ID string

// Hook runs at a lifecycle boundary. The failed hook rolls back
// speculative changes; the finished hook flips persistent "done" flags.
type Hook func(ctx context.Context)

// Option configures a Wizard at construction.
type Option func(*Wizard)

// NonCancelable gates Cancel with ErrNotCancelable. ForceCancel stays
// available.
func NonCancelable() Option {
	return func(w *Wizard) { w.cancelable = false }
}

// WithStore installs the result persistence target.
func WithStore(s *history.Store) Option {
	return func(w *Wizard) { w.store = s }
}

// WithFailedHook installs the hook run once when a phase fails.
func WithFailedHook(h Hook) Option {
	return func(w *Wizard) { w.onFailed = h }
}

// WithFinishedHook installs the hook run once after all phases succeed,
// before config writers commit.
func WithFinishedHook(h Hook) Option {
	return func(w *Wizard) { w.onFinished = h }
}

// CheckData is the per-check view a front end consumes.
type CheckData struct {
	State    check.State
	Progress float64
}

// Wizard is one guided procedure. It runs once and is not restartable.
type Wizard struct {
	id         ID
	runID      uuid.UUID
	groups     []*group.Group
	pkg        *DataPackage
	broker     *useraction.Broker
	store      *history.Store
	cancelable bool
	onFailed   Hook
	onFinished Hook

	interp      *statekit.Interpreter[machineContext]
	checkEvents chan struct{}

	mu        sync.RWMutex
	current   *group.Group
	runCancel context.CancelFunc
	started   bool
	err       error
	data      map[string]any
	done      chan struct{}
}

// New assembles a wizard over its phases. The lifecycle machine starts
// immediately so State is observable before Run.
func New(id ID, pkg *DataPackage, groups []*group.Group, opts ...Option) (*Wizard, error) {
	interp, err := buildLifecycle(id)
	if err != nil {
		return nil, err
	}
	w := &Wizard{
		id:          id,
		runID:       uuid.New(),
		groups:      groups,
		pkg:         pkg,
		broker:      useraction.NewBroker(),
		cancelable:  true,
		interp:      interp,
		checkEvents: make(chan struct{}, 1),
		data:        make(map[string]any),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.interp.Start()
	return w, nil
}

// ID returns the procedure name.
func (w *Wizard) ID() ID { return w.id }

// RunID returns the unique identifier of this run.
func (w *Wizard) RunID() uuid.UUID { return w.runID }

// Broker returns the user action broker front ends resolve actions on.
func (w *Wizard) Broker() *useraction.Broker { return w.broker }

// Done is closed when Run has returned.
func (w *Wizard) Done() <-chan struct{} { return w.done }

// State returns the externally observable state: the top of the
// interaction stack when non-empty, else the lifecycle machine's
// current state. The machine lives as long as the wizard, so terminal
// states stay readable after Run returns.
func (w *Wizard) State() State {
	if top, ok := w.broker.Top(); ok {
		return State(top)
	}
	return State(w.interp.State().Value)
}

// Err returns the captured error after a failed run.
func (w *Wizard) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Warnings returns the union of all child check warnings, in phase and
// declaration order.
func (w *Wizard) Warnings() []error {
	var out []error
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			out = append(out, c.Warnings()...)
		}
	}
	return out
}

// CheckStates maps every check to its current state.
func (w *Wizard) CheckStates() map[check.ID]check.State {
	out := make(map[check.ID]check.State)
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			out[c.ID()] = c.State()
		}
	}
	return out
}

// CheckData maps every check to its state and progress.
func (w *Wizard) CheckData() map[check.ID]CheckData {
	out := make(map[check.ID]CheckData)
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			out[c.ID()] = CheckData{State: c.State(), Progress: c.Progress()}
		}
	}
	return out
}

// Data returns a copy of the aggregated result map.
func (w *Wizard) Data() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.data))
	for k, v := range w.data {
		out[k] = v
	}
	return out
}

// Start launches Run on its own goroutine, keeping long procedures off
// the caller's loop.
func (w *Wizard) Start(ctx context.Context) {
	go func() { _ = w.Run(ctx) }()
}

// Run executes every phase in order. Whatever the outcome, all motors
// are released before it returns.
func (w *Wizard) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyRun
	}
	w.started = true
	runCtx, cancel := context.WithCancel(ctx)
	w.runCancel = cancel
	w.mu.Unlock()

	defer close(w.done)
	defer cancel()
	defer func() {
		// Hardware-safety invariant, independent of the outcome.
		if err := w.pkg.Hardware.MotorsRelease(context.Background()); err != nil && w.pkg.Log != nil {
			w.pkg.Log.Error(context.Background(), "motors release failed", ports.F("error", err))
		}
	}()

	w.send(eventRun)
	w.watchChecks()
	go w.coverMonitor(runCtx)

	for _, g := range w.groups {
		w.setCurrent(g)
		err := g.Run(runCtx, w.broker, w.newEnv())
		w.setCurrent(nil)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			w.send(eventCancel)
			return err
		}
		w.failRun(err)
		return err
	}

	if w.onFinished != nil {
		w.onFinished(runCtx)
	}
	for _, cw := range w.pkg.Writers {
		if err := cw.Commit(); err != nil {
			err = fmt.Errorf("commit wizard config: %w", err)
			w.failRun(err)
			return err
		}
	}
	w.aggregate()
	if err := w.persist(); err != nil {
		w.setErr(err)
		w.send(eventFail)
		return err
	}
	w.send(eventFinish)
	return nil
}

// failRun is the single failure sequence: capture the error, run the
// rollback hook, persist whatever partial results exist, then fail the
// lifecycle machine.
func (w *Wizard) failRun(err error) {
	w.setErr(err)
	if w.pkg.Log != nil {
		w.pkg.Log.Error(context.Background(), "wizard run failed",
			ports.F("wizard", string(w.id)), ports.F("error", err))
	}
	if w.onFailed != nil {
		w.onFailed(context.Background())
	}
	w.aggregate()
	if perr := w.persist(); perr != nil && w.pkg.Log != nil {
		w.pkg.Log.Error(context.Background(), "partial result persistence failed", ports.F("error", perr))
	}
	w.send(eventFail)
}

// Cancel requests cooperative cancellation. It errors on a wizard that
// declares itself non-cancelable and leaves its state unchanged.
func (w *Wizard) Cancel() error {
	if !w.cancelable {
		return ErrNotCancelable
	}
	w.ForceCancel()
	return nil
}

// ForceCancel cancels regardless of the cancelable declaration. Used on
// process shutdown.
func (w *Wizard) ForceCancel() {
	w.mu.RLock()
	g := w.current
	cancel := w.runCancel
	w.mu.RUnlock()
	if g != nil {
		g.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// newEnv prepares the per-phase execution environment. The lock table
// and broker are filled in by the group itself.
func (w *Wizard) newEnv() *check.Env {
	return &check.Env{
		Pool:     w.pkg.Pool,
		Hardware: w.pkg.Hardware,
		Log:      w.pkg.Log,
	}
}

// aggregate rebuilds the result map from every check: successful checks
// merge their data (later keys overwrite earlier ones of the same name),
// failed checks contribute a serializable error descriptor.
func (w *Wizard) aggregate() {
	data := make(map[string]any)
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			switch c.State() {
			case check.Success, check.Warning:
				for k, v := range c.Data() {
					data[k] = v
				}
			case check.Failure:
				if err := c.Err(); err != nil {
					data[string(c.ID())+"_exception"] = map[string]any{
						"check":   string(c.ID()),
						"message": err.Error(),
					}
				}
			}
		}
	}
	w.mu.Lock()
	w.data = data
	w.mu.Unlock()
}

// persist writes the aggregated results when a store is configured and
// there is anything to write.
func (w *Wizard) persist() error {
	w.mu.RLock()
	store := w.store
	empty := len(w.data) == 0
	w.mu.RUnlock()
	if store == nil || empty {
		return nil
	}
	if _, err := store.Save(string(w.id), w.runID, w.Data()); err != nil {
		return &PersistenceError{Wizard: w.id, Err: err}
	}
	return nil
}

// send drives the lifecycle machine. Undeclared transitions are
// refused by the machine and leave the state unchanged.
func (w *Wizard) send(event string) {
	w.interp.Send(statekit.Event{Type: statekit.EventType(event)})
}

// watchChecks installs the change notification on every check, feeding
// the cover monitor's event channel.
func (w *Wizard) watchChecks() {
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			c.SetNotify(w.pokeCheckEvents)
		}
	}
}

// pokeCheckEvents is a non-blocking wakeup; a full channel already has
// a pending evaluation.
func (w *Wizard) pokeCheckEvents() {
	select {
	case w.checkEvents <- struct{}{}:
	default:
	}
}

func (w *Wizard) setCurrent(g *group.Group) {
	w.mu.Lock()
	w.current = g
	w.mu.Unlock()
}

func (w *Wizard) setErr(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}
