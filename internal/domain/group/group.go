// Package group implements one phase of a wizard: a set of checks that
// share a physical setup assumption and run concurrently under
// phase-scoped resource locks.
package group

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/check"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// SetupFunc runs once at the start of a phase, before any check. The
// canonical use is blocking on user confirmation via useraction.WaitFor.
type SetupFunc func(ctx context.Context, broker *useraction.Broker) error

// IncompatibleConfigError reports a check whose expected physical
// arrangement contradicts its phase's. Raised at construction, never at
// run time.
type IncompatibleConfigError struct {
	Check     check.ID
	CheckConf resource.Configuration
	GroupConf resource.Configuration
}

// Error implements the error interface.
func (e *IncompatibleConfigError) Error() string {
	return fmt.Sprintf("check %q %s is incompatible with group %s", e.Check, e.CheckConf, e.GroupConf)
}

// Option configures a Group at construction.
type Option func(*Group)

// WithSetup installs the phase setup hook.
func WithSetup(fn SetupFunc) Option {
	return func(g *Group) { g.setup = fn }
}

// WithLogger installs the phase logger.
func WithLogger(log ports.Logger) Option {
	return func(g *Group) { g.log = log }
}

// Group is one phase of a wizard.
type Group struct {
	conf   resource.Configuration
	checks []*check.Check
	setup  SetupFunc
	log    ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New validates every check against the group configuration and builds
// the phase. Incompatibility is a construction-time error.
func New(conf resource.Configuration, checks []*check.Check, opts ...Option) (*Group, error) {
	for _, c := range checks {
		if !conf.IsCompatible(c.Configuration()) {
			return nil, &IncompatibleConfigError{
				Check:     c.ID(),
				CheckConf: c.Configuration(),
				GroupConf: conf,
			}
		}
	}
	g := &Group{conf: conf, checks: checks}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Configuration returns the physical arrangement the phase expects.
func (g *Group) Configuration() resource.Configuration { return g.conf }

// Checks returns the phase's checks in declaration order.
func (g *Group) Checks() []*check.Check {
	out := make([]*check.Check, len(g.checks))
	copy(out, g.checks)
	return out
}

// Progress returns the mean progress of the phase's checks.
func (g *Group) Progress() float64 {
	if len(g.checks) == 0 {
		return 1
	}
	var sum float64
	for _, c := range g.checks {
		sum += c.Progress()
	}
	return sum / float64(len(g.checks))
}

// Run executes the phase: fresh lock table, setup hook, then every check
// that is not already successful, concurrently. The first failure or
// cancellation cancels the siblings and is returned.
func (g *Group) Run(ctx context.Context, broker *useraction.Broker, env *check.Env) error {
	runCtx, cancel := context.WithCancel(ctx)
	g.setCancel(cancel)
	defer func() {
		g.setCancel(nil)
		cancel()
	}()

	env.Locks = check.NewLockTable()
	env.Broker = broker

	if g.setup != nil {
		if err := g.setup(runCtx, broker); err != nil {
			return err
		}
	}

	eg, egCtx := errgroup.WithContext(runCtx)
	for _, c := range g.checks {
		// Success and Warning both count as passed.
		if s := c.State(); s == check.Success || s == check.Warning {
			continue
		}
		c := c
		eg.Go(func() error {
			if g.log != nil {
				g.log.Debug(egCtx, "check starting", ports.F("check", string(c.ID())))
			}
			return c.Run(egCtx, env)
		})
	}
	return eg.Wait()
}

// Cancel is best effort: it cancels the in-flight run, if any, and
// eagerly marks every child canceled whether or not it had started.
func (g *Group) Cancel() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	for _, c := range g.checks {
		c.Cancel()
	}
}

func (g *Group) setCancel(fn context.CancelFunc) {
	g.mu.Lock()
	g.cancel = fn
	g.mu.Unlock()
}
