// Package selftest assembles the self-test procedure from simulated
// checks. The hardware algorithms of the real checks live behind the
// data package; this wiring demonstrates the full engine surface:
// user-confirmed setup, parallel resource-locked checks and a
// cover-gated tower move.
package selftest

import (
	"context"
	"time"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/check"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/group"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/wizard"
)

// WizardID names the procedure and its result file.
const WizardID wizard.ID = "self_test"

// Interaction states surfaced by the self-test.
const (
	// StateConfirmReadiness asks the user to confirm the printer is
	// ready: tank removed, platform installed.
	StateConfirmReadiness useraction.State = "self_test_confirm_readiness"
)

// Actions a front end resolves.
const (
	// ActionConfirmReadiness acknowledges StateConfirmReadiness.
	ActionConfirmReadiness useraction.Action = "self_test_confirm_readiness"
)

// ActionFor maps an interaction state to the action resolving it, so
// front ends can answer whatever the wizard surfaces.
func ActionFor(s useraction.State) (useraction.Action, bool) {
	switch s {
	case StateConfirmReadiness:
		return ActionConfirmReadiness, true
	default:
		return "", false
	}
}

// Check identities, keyed into the persisted result map.
const (
	CheckConnect    check.ID = "mc_connect"
	CheckFans       check.ID = "fans"
	CheckUVLED      check.ID = "uv_led"
	CheckTowerRange check.ID = "tower_range"
)

// New assembles the self-test wizard over the given data package.
func New(pkg *wizard.DataPackage, opts ...wizard.Option) (*wizard.Wizard, error) {
	connect, err := group.New(resource.Configuration{},
		[]*check.Check{
			check.New(CheckConnect, resource.Configuration{},
				[]resource.Resource{resource.MC}, connectBody),
		},
		group.WithLogger(pkg.Log),
		group.WithSetup(func(ctx context.Context, broker *useraction.Broker) error {
			return useraction.WaitFor(ctx, broker, ActionConfirmReadiness, StateConfirmReadiness)
		}),
	)
	if err != nil {
		return nil, err
	}

	// Fans and UV share no resource, so they run in true parallel.
	airflow, err := group.New(
		resource.Configuration{Tank: resource.TankRemoved, Platform: resource.PlatformInstalled},
		[]*check.Check{
			check.New(CheckFans, resource.Configuration{Tank: resource.TankRemoved},
				[]resource.Resource{resource.Fans}, fansBody, check.Pooled()),
			check.New(CheckUVLED, resource.Configuration{Platform: resource.PlatformInstalled},
				[]resource.Resource{resource.UV}, uvBody),
		},
		group.WithLogger(pkg.Log),
	)
	if err != nil {
		return nil, err
	}

	motion, err := group.New(resource.Configuration{Tank: resource.TankRemoved},
		[]*check.Check{
			check.New(CheckTowerRange, resource.Configuration{},
				[]resource.Resource{resource.MC, resource.Tower, resource.TowerDown},
				towerBody, check.CoverGated()),
		},
		group.WithLogger(pkg.Log),
	)
	if err != nil {
		return nil, err
	}

	return wizard.New(WizardID, pkg, []*group.Group{connect, airflow, motion}, opts...)
}

// connectBody verifies the motion controller responds.
func connectBody(ctx context.Context, rc *check.RunContext) (map[string]any, error) {
	if err := simulate(ctx, rc, 150*time.Millisecond); err != nil {
		return nil, err
	}
	return map[string]any{"mc_revision": "6c", "mc_serial": "SIM-0001"}, nil
}

// fansBody spins the fans and records their RPM readings.
func fansBody(ctx context.Context, rc *check.RunContext) (map[string]any, error) {
	if err := simulate(ctx, rc, 400*time.Millisecond); err != nil {
		return nil, err
	}
	return map[string]any{
		"fan_uv_rpm":      int64(2850),
		"fan_blower_rpm":  int64(3310),
		"fan_rear_rpm":    int64(1020),
		"wizard_fan_test": true,
	}, nil
}

// uvBody measures UV LED temperature under load.
func uvBody(ctx context.Context, rc *check.RunContext) (map[string]any, error) {
	if err := simulate(ctx, rc, 400*time.Millisecond); err != nil {
		return nil, err
	}
	return map[string]any{"uv_temp_celsius": 42.3, "wizard_uv_test": true}, nil
}

// towerBody homes the tower and sweeps its full range.
func towerBody(ctx context.Context, rc *check.RunContext) (map[string]any, error) {
	if err := simulate(ctx, rc, 600*time.Millisecond); err != nil {
		return nil, err
	}
	return map[string]any{"tower_range_steps": int64(96000), "wizard_tower_test": true}, nil
}

// simulate stands in for a hardware operation: it sleeps in slices and
// publishes progress, honoring cancellation.
func simulate(ctx context.Context, rc *check.RunContext, total time.Duration) error {
	const slices = 10
	for i := 1; i <= slices; i++ {
		select {
		case <-time.After(total / slices):
			rc.SetProgress(float64(i) / slices)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
