package check

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/simulator"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
)

func newEnv() *Env {
	return &Env{
		Locks:  NewLockTable(),
		Broker: useraction.NewBroker(),
		Pool:   semaphore.NewWeighted(3),
	}
}

func TestCheck_SuccessRecordsData(t *testing.T) {
	c := New("probe", resource.Configuration{}, []resource.Resource{resource.MC},
		func(_ context.Context, rc *RunContext) (map[string]any, error) {
			rc.SetProgress(0.5)
			return map[string]any{"value": 7}, nil
		})

	require.NoError(t, c.Run(context.Background(), newEnv()))
	assert.Equal(t, Success, c.State())
	assert.Equal(t, 1.0, c.Progress())
	assert.Equal(t, map[string]any{"value": 7}, c.Data())
	assert.NoError(t, c.Err())
}

func TestCheck_FailureCapturesError(t *testing.T) {
	boom := errors.New("uv voltage out of range")
	c := New("uv", resource.Configuration{}, []resource.Resource{resource.UV},
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			return nil, boom
		})

	err := c.Run(context.Background(), newEnv())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failure, c.State())
	assert.ErrorIs(t, c.Err(), boom)
	assert.Empty(t, c.Data())
}

func TestCheck_WarningsDowngradeSuccess(t *testing.T) {
	warn := errors.New("fan rpm slightly low")
	c := New("fans", resource.Configuration{}, []resource.Resource{resource.Fans},
		func(_ context.Context, rc *RunContext) (map[string]any, error) {
			rc.AddWarning(warn)
			return map[string]any{"rpm": 1000}, nil
		})

	require.NoError(t, c.Run(context.Background(), newEnv()))
	assert.Equal(t, Warning, c.State())
	require.Len(t, c.Warnings(), 1)
	assert.ErrorIs(t, c.Warnings()[0], warn)
	assert.Equal(t, map[string]any{"rpm": 1000}, c.Data())
}

func TestCheck_EagerCancelBeforeRun(t *testing.T) {
	ran := false
	c := New("late", resource.Configuration{}, nil,
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			ran = true
			return nil, nil
		})

	c.Cancel()
	err := c.Run(context.Background(), newEnv())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Canceled, c.State())
	assert.False(t, ran, "canceled check must not execute its body")
}

func TestCheck_BodyCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New("slow", resource.Configuration{}, []resource.Resource{resource.Tower},
		func(ctx context.Context, _ *RunContext) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, newEnv()) }()

	require.Eventually(t, func() bool { return c.State() == Running }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, Canceled, c.State())
	assert.NoError(t, c.Err(), "cancellation is not a failure")
}

func TestCheck_TerminalStatesSticky(t *testing.T) {
	c := New("done", resource.Configuration{}, nil,
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			return map[string]any{"k": "v"}, nil
		})
	require.NoError(t, c.Run(context.Background(), newEnv()))
	require.Equal(t, Success, c.State())

	c.Cancel()
	assert.Equal(t, Success, c.State())
}

func TestCheck_LocksReleasedAfterFailure(t *testing.T) {
	env := newEnv()
	c := New("fail", resource.Configuration{}, []resource.Resource{resource.Tilt},
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			return nil, errors.New("nope")
		})
	_ = c.Run(context.Background(), env)

	assert.Len(t, env.Locks[resource.Tilt], 0, "failed run must release its locks")
}

func TestCheck_PooledBodiesBounded(t *testing.T) {
	env := newEnv()
	var running, peak int32
	body := func(_ context.Context, _ *RunContext) (map[string]any, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		c := New(ID(rune('a'+i)), resource.Configuration{}, nil, body, Pooled())
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Run(context.Background(), env)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3), "pooled bodies must not exceed 3 slots")
}

func TestCheck_CoverGateBlocksUntilClosed(t *testing.T) {
	hw := simulator.NewHardware()
	hw.SetCoverClosed(false)
	env := newEnv()
	env.Hardware = hw

	var bodyStarted atomic.Bool
	c := New("dangerous", resource.Configuration{}, []resource.Resource{resource.Tower},
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			bodyStarted.Store(true)
			return nil, nil
		}, CoverGated())
	assert.True(t, c.Dangerous())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), env) }()

	time.Sleep(200 * time.Millisecond)
	assert.False(t, bodyStarted.Load(), "body must not start while the cover is open")
	assert.Equal(t, Running, c.State())

	hw.SetCoverClosed(true)
	require.NoError(t, <-done)
	assert.True(t, bodyStarted.Load())
	assert.Equal(t, Success, c.State())
}

func TestCheck_CoverGateSkippedWhenCheckDisabled(t *testing.T) {
	hw := simulator.NewHardware()
	hw.SetCoverClosed(false)
	hw.SetCoverCheck(false)
	env := newEnv()
	env.Hardware = hw

	c := New("dangerous", resource.Configuration{}, nil,
		func(_ context.Context, _ *RunContext) (map[string]any, error) {
			return nil, nil
		}, CoverGated())

	require.NoError(t, c.Run(context.Background(), env))
	assert.Equal(t, Success, c.State())
}

func TestCheck_NotifyFiresOnObservableChanges(t *testing.T) {
	var fired atomic.Int32
	c := New("watched", resource.Configuration{}, nil,
		func(_ context.Context, rc *RunContext) (map[string]any, error) {
			rc.SetProgress(0.5)
			return map[string]any{"v": 1}, nil
		})
	c.SetNotify(func() { fired.Add(1) })

	require.NoError(t, c.Run(context.Background(), newEnv()))
	// Running transition, two progress updates and the terminal
	// transition each notify.
	assert.GreaterOrEqual(t, fired.Load(), int32(4))
}

func TestCheck_ResourcesReportedCanonically(t *testing.T) {
	c := New("shuffled", resource.Configuration{},
		[]resource.Resource{resource.UV, resource.Fans, resource.Tilt}, nil)
	assert.Equal(t, []resource.Resource{resource.Fans, resource.Tilt, resource.UV}, c.Resources())
}

func TestState_Strings(t *testing.T) {
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "canceled", Canceled.String())
	assert.False(t, Waiting.Terminal())
	assert.False(t, Running.Terminal())
	assert.True(t, Success.Terminal())
	assert.True(t, Canceled.Terminal())
}
