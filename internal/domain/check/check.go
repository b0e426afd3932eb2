package check

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// coverPollInterval is how often a cover-gated check re-reads the cover
// sensor while waiting for the enclosure to be closed. The wait itself
// is unbounded: the check simply will not proceed while unsafe.
const coverPollInterval = 500 * time.Millisecond

// ID is the type tag of a check, used for result bookkeeping and for
// front-end icon/label mapping.
type ID string

// Body is the subtype-specific work of a check. It returns the check's
// result data, which is recorded only when the body succeeds.
type Body func(ctx context.Context, rc *RunContext) (map[string]any, error)

// Env carries everything a check execution needs from its owning phase.
type Env struct {
	// Locks is the phase-scoped lock table.
	Locks LockTable
	// Broker pauses execution for human input.
	Broker *useraction.Broker
	// Pool bounds how many pooled (blocking) bodies run at once.
	Pool *semaphore.Weighted
	// Hardware is consulted by cover-gated checks.
	Hardware ports.Hardware
	// Log is the phase logger.
	Log ports.Logger
}

// RunContext is the handle a body uses to talk back to its check.
type RunContext struct {
	ctx context.Context
	env *Env
	c   *Check
}

// Broker returns the user action broker.
func (rc *RunContext) Broker() *useraction.Broker { return rc.env.Broker }

// Hardware returns the hardware facade.
func (rc *RunContext) Hardware() ports.Hardware { return rc.env.Hardware }

// Logger returns the phase logger.
func (rc *RunContext) Logger() ports.Logger { return rc.env.Log }

// SetProgress publishes the body's progress fraction, clamped to [0,1].
func (rc *RunContext) SetProgress(p float64) { rc.c.setProgress(p) }

// AddWarning attaches a non-fatal issue to the check.
func (rc *RunContext) AddWarning(err error) { rc.c.AddWarning(err) }

// Option configures a Check at construction.
type Option func(*Check)

// Pooled marks the check's body as blocking. Pooled bodies share a
// bounded pool so a burst of them cannot monopolize the scheduler;
// resource locks stay with the phase run either way.
func Pooled() Option {
	return func(c *Check) { c.pooled = true }
}

// CoverGated marks the check as dangerous: its body will not start while
// cover checking is enabled and the enclosure cover is open.
func CoverGated() Option {
	return func(c *Check) { c.coverGated = true }
}

// Check is one unit of work inside a phase. All mutation goes through
// its own run envelope and through Cancel.
type Check struct {
	id         ID
	conf       resource.Configuration
	resources  []resource.Resource
	body       Body
	pooled     bool
	coverGated bool

	mu       sync.RWMutex
	state    State
	progress float64
	err      error
	warnings []error
	data     map[string]any
	notify   func()
}

// New creates a check with the given identity, expected physical
// configuration, declared resources and body.
func New(id ID, conf resource.Configuration, rs []resource.Resource, body Body, opts ...Option) *Check {
	c := &Check{
		id:        id,
		conf:      conf,
		resources: resource.Sorted(rs),
		body:      body,
		state:     Waiting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the check's type tag.
func (c *Check) ID() ID { return c.id }

// Configuration returns the physical arrangement the check expects.
func (c *Check) Configuration() resource.Configuration { return c.conf }

// Resources returns the declared resource set in canonical order.
func (c *Check) Resources() []resource.Resource {
	out := make([]resource.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Dangerous reports whether the check is cover-gated.
func (c *Check) Dangerous() bool { return c.coverGated }

// State returns the current state.
func (c *Check) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Progress returns the current progress fraction in [0,1].
func (c *Check) Progress() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.progress
}

// Err returns the captured error, if the check failed.
func (c *Check) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Warnings returns the accumulated non-fatal issues.
func (c *Check) Warnings() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]error, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Data returns the result data recorded on success.
func (c *Check) Data() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// SetNotify installs a callback invoked after every observable change.
// The owning wizard installs its cover monitor wakeup here before the
// first phase runs; the callback must not block.
func (c *Check) SetNotify(fn func()) {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()
}

// AddWarning appends a non-fatal issue without affecting control flow.
func (c *Check) AddWarning(err error) {
	c.mu.Lock()
	c.warnings = append(c.warnings, err)
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel marks the check canceled without touching any locks. Terminal
// states stay as they are.
func (c *Check) Cancel() {
	c.setState(Canceled)
}

// Run executes the check under its resource locks. It is called from
// the owning phase's run loop only.
func (c *Check) Run(ctx context.Context, env *Env) error {
	release, err := env.Locks.acquire(ctx, c.resources)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.setState(Canceled)
		} else {
			c.recordFailure(err)
		}
		return err
	}
	defer release()

	if !c.setState(Running) {
		// Canceled eagerly before the locks came through.
		return context.Canceled
	}
	c.setProgress(0)

	if c.coverGated {
		if err := c.awaitCoverClosed(ctx, env); err != nil {
			c.setState(Canceled)
			return err
		}
	}

	var data map[string]any
	if c.pooled {
		if err := env.Pool.Acquire(ctx, 1); err != nil {
			c.setState(Canceled)
			return err
		}
		data, err = c.body(ctx, &RunContext{ctx: ctx, env: env, c: c})
		env.Pool.Release(1)
	} else {
		data, err = c.body(ctx, &RunContext{ctx: ctx, env: env, c: c})
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.setState(Canceled)
			return err
		}
		c.recordFailure(err)
		return err
	}
	if ctx.Err() != nil || c.State() == Canceled {
		c.setState(Canceled)
		return context.Canceled
	}

	c.finish(data)
	return nil
}

// awaitCoverClosed blocks until the cover is virtually closed, polling
// the sensor. A disabled cover check passes immediately.
func (c *Check) awaitCoverClosed(ctx context.Context, env *Env) error {
	if env.Hardware == nil || !env.Hardware.CoverCheckEnabled() {
		return nil
	}
	for !env.Hardware.IsCoverVirtuallyClosed() {
		if env.Log != nil {
			env.Log.Debug(ctx, "cover open, waiting", ports.F("check", string(c.id)))
		}
		select {
		case <-time.After(coverPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// setState transitions to s, respecting terminal stickiness. Returns
// false when the transition was refused.
func (c *Check) setState(s State) bool {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return false
	}
	c.state = s
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

func (c *Check) setProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	c.mu.Lock()
	c.progress = p
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Check) recordFailure(err error) {
	c.mu.Lock()
	if !c.state.Terminal() {
		c.state = Failure
		c.err = err
	}
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Check) finish(data map[string]any) {
	c.mu.Lock()
	if !c.state.Terminal() {
		c.data = data
		c.progress = 1
		if len(c.warnings) > 0 {
			c.state = Warning
		} else {
			c.state = Success
		}
	}
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
