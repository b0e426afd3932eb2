package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardware_Defaults(t *testing.T) {
	hw := NewHardware()
	assert.True(t, hw.IsCoverClosed())
	assert.True(t, hw.IsCoverVirtuallyClosed())
	assert.True(t, hw.CoverCheckEnabled())
	assert.False(t, hw.MotorsReleased())
}

func TestHardware_VirtualCoverIgnoresSensorWhenDisabled(t *testing.T) {
	hw := NewHardware()
	hw.SetCoverClosed(false)
	assert.False(t, hw.IsCoverVirtuallyClosed())

	hw.SetCoverCheck(false)
	assert.False(t, hw.IsCoverClosed(), "raw sensor still reads open")
	assert.True(t, hw.IsCoverVirtuallyClosed())
}

func TestHardware_MotorsRelease(t *testing.T) {
	hw := NewHardware()
	require.NoError(t, hw.MotorsRelease(context.Background()))
	require.NoError(t, hw.MotorsRelease(context.Background()))
	assert.True(t, hw.MotorsReleased())
	assert.Equal(t, 2, hw.ReleaseCount())
}

func TestHardware_CoverSubscription(t *testing.T) {
	hw := NewHardware()
	events, unsubscribe := hw.SubscribeCoverState()

	hw.SetCoverClosed(false)
	assert.False(t, <-events)
	hw.SetCoverClosed(true)
	assert.True(t, <-events)

	unsubscribe()
	_, open := <-events
	assert.False(t, open, "unsubscribe closes the channel")

	// Publishing after unsubscribe must not panic.
	hw.SetCoverClosed(false)
}
