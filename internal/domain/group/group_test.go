package group

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/check"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
)

func newEnv() *check.Env {
	return &check.Env{Pool: semaphore.NewWeighted(3)}
}

func sleeper(id check.ID, rs []resource.Resource, d time.Duration) *check.Check {
	return check.New(id, resource.Configuration{}, rs,
		func(ctx context.Context, _ *check.RunContext) (map[string]any, error) {
			select {
			case <-time.After(d):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
}

func TestNew_IncompatibleConfigurationFailsConstruction(t *testing.T) {
	c := check.New("probe", resource.Configuration{Tank: resource.TankInstalled}, nil, nil)

	_, err := New(resource.Configuration{Tank: resource.TankRemoved}, []*check.Check{c})
	require.Error(t, err)

	var mismatch *IncompatibleConfigError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, check.ID("probe"), mismatch.Check)
}

func TestNew_CompatibleConfigurationSucceeds(t *testing.T) {
	c := check.New("probe", resource.Configuration{Tank: resource.TankRemoved}, nil, nil)
	g, err := New(resource.Configuration{Tank: resource.TankRemoved, Platform: resource.PlatformPrint},
		[]*check.Check{c})
	require.NoError(t, err)
	assert.Len(t, g.Checks(), 1)
}

func TestRun_DisjointResourcesRunInParallel(t *testing.T) {
	a := sleeper("a", []resource.Resource{resource.Tilt}, 200*time.Millisecond)
	b := sleeper("b", []resource.Resource{resource.UV}, 200*time.Millisecond)
	g, err := New(resource.Configuration{}, []*check.Check{a, b})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 380*time.Millisecond,
		"disjoint resource sets must overlap: took %v", elapsed)
	assert.Equal(t, check.Success, a.State())
	assert.Equal(t, check.Success, b.State())
}

func TestRun_SharedResourceSerializes(t *testing.T) {
	a := sleeper("a", []resource.Resource{resource.Tower}, 200*time.Millisecond)
	b := sleeper("b", []resource.Resource{resource.Tower}, 200*time.Millisecond)
	g, err := New(resource.Configuration{}, []*check.Check{a, b})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 395*time.Millisecond,
		"shared resource must serialize: took %v", elapsed)
}

func TestRun_OverlappingRunningIntervalsRespectLocks(t *testing.T) {
	var concurrent, peak int32
	body := func(ctx context.Context, _ *check.RunContext) (map[string]any, error) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		return nil, nil
	}

	checks := []*check.Check{
		check.New("a", resource.Configuration{}, []resource.Resource{resource.Fans}, body),
		check.New("b", resource.Configuration{}, []resource.Resource{resource.Fans}, body),
		check.New("c", resource.Configuration{}, []resource.Resource{resource.Fans}, body),
	}
	g, err := New(resource.Configuration{}, checks)
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak),
		"checks sharing a resource must never run at once")
}

func TestRun_SetupRunsBeforeChecks(t *testing.T) {
	var order []string
	c := check.New("c", resource.Configuration{}, nil,
		func(_ context.Context, _ *check.RunContext) (map[string]any, error) {
			order = append(order, "check")
			return nil, nil
		})
	g, err := New(resource.Configuration{}, []*check.Check{c},
		WithSetup(func(_ context.Context, _ *useraction.Broker) error {
			order = append(order, "setup")
			return nil
		}))
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	assert.Equal(t, []string{"setup", "check"}, order)
}

func TestRun_SetupFailureSkipsChecks(t *testing.T) {
	boom := errors.New("user walked away")
	ran := false
	c := check.New("c", resource.Configuration{}, nil,
		func(_ context.Context, _ *check.RunContext) (map[string]any, error) {
			ran = true
			return nil, nil
		})
	g, err := New(resource.Configuration{}, []*check.Check{c},
		WithSetup(func(_ context.Context, _ *useraction.Broker) error { return boom }))
	require.NoError(t, err)

	assert.ErrorIs(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()), boom)
	assert.False(t, ran)
}

func TestRun_SkipsAlreadySuccessfulChecks(t *testing.T) {
	var runs int32
	body := func(_ context.Context, _ *check.RunContext) (map[string]any, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	}
	a := check.New("a", resource.Configuration{}, nil, body)
	b := check.New("b", resource.Configuration{}, nil, body)
	g, err := New(resource.Configuration{}, []*check.Check{a, b})
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	require.Equal(t, int32(2), atomic.LoadInt32(&runs))

	// A second run re-executes nothing that already succeeded.
	require.NoError(t, g.Run(context.Background(), useraction.NewBroker(), newEnv()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestRun_FailingCheckCancelsSiblings(t *testing.T) {
	boom := errors.New("tilt endstop not found")
	failing := check.New("failing", resource.Configuration{}, []resource.Resource{resource.Tilt},
		func(_ context.Context, _ *check.RunContext) (map[string]any, error) {
			return nil, boom
		})
	slow := sleeper("slow", []resource.Resource{resource.UV}, 5*time.Second)

	g, err := New(resource.Configuration{}, []*check.Check{failing, slow})
	require.NoError(t, err)

	start := time.Now()
	err = g.Run(context.Background(), useraction.NewBroker(), newEnv())
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 2*time.Second, "failure must cancel the slow sibling")
	assert.Equal(t, check.Failure, failing.State())
	assert.Equal(t, check.Canceled, slow.State())
}

func TestCancel_MarksEveryChildCanceled(t *testing.T) {
	blocked := sleeper("blocked", []resource.Resource{resource.Tower}, time.Hour)
	waiting := sleeper("waiting", []resource.Resource{resource.Tower}, time.Hour)
	g, err := New(resource.Configuration{}, []*check.Check{blocked, waiting})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background(), useraction.NewBroker(), newEnv()) }()

	require.Eventually(t, func() bool {
		return blocked.State() == check.Running || waiting.State() == check.Running
	}, time.Second, time.Millisecond)

	g.Cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, check.Canceled, blocked.State())
	assert.Equal(t, check.Canceled, waiting.State())
}

func TestProgress_MeanOfChildren(t *testing.T) {
	a := check.New("a", resource.Configuration{}, nil,
		func(_ context.Context, _ *check.RunContext) (map[string]any, error) { return nil, nil })
	b := check.New("b", resource.Configuration{}, nil, nil)
	g, err := New(resource.Configuration{}, []*check.Check{a, b})
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background(), &check.Env{Locks: check.NewLockTable()}))
	assert.InDelta(t, 0.5, g.Progress(), 0.001)
}
