// Package simulator provides an in-process stand-in for the printer
// hardware so wizards can be exercised without a machine attached.
package simulator

import (
	"context"
	"sync"

	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// Hardware implements ports.Hardware with settable state. Safe for
// concurrent use.
type Hardware struct {
	mu            sync.Mutex
	coverClosed   bool
	coverCheck    bool
	motorsHeld    bool
	releases      int
	subscribers   map[int]chan bool
	nextSubscribe int
}

// NewHardware creates a simulator with the cover closed and cover
// checking enabled.
func NewHardware() *Hardware {
	return &Hardware{
		coverClosed: true,
		coverCheck:  true,
		motorsHeld:  true,
		subscribers: make(map[int]chan bool),
	}
}

// SetCoverCheck enables or disables cover checking.
func (h *Hardware) SetCoverCheck(enabled bool) {
	h.mu.Lock()
	h.coverCheck = enabled
	h.mu.Unlock()
}

// SetCoverClosed flips the simulated cover sensor and notifies
// subscribers.
func (h *Hardware) SetCoverClosed(closed bool) {
	h.mu.Lock()
	h.coverClosed = closed
	subs := make([]chan bool, 0, len(h.subscribers))
	for _, ch := range h.subscribers {
		subs = append(subs, ch)
	}
	h.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- closed:
		default:
		}
	}
}

// MotorsRelease de-energizes the simulated motors.
func (h *Hardware) MotorsRelease(_ context.Context) error {
	h.mu.Lock()
	h.motorsHeld = false
	h.releases++
	h.mu.Unlock()
	return nil
}

// MotorsReleased reports whether the motors are currently released.
func (h *Hardware) MotorsReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.motorsHeld
}

// ReleaseCount counts MotorsRelease calls.
func (h *Hardware) ReleaseCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releases
}

// IsCoverClosed reports the raw simulated sensor.
func (h *Hardware) IsCoverClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coverClosed
}

// IsCoverVirtuallyClosed reports closed whenever cover checking is off.
func (h *Hardware) IsCoverVirtuallyClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.coverCheck {
		return true
	}
	return h.coverClosed
}

// CoverCheckEnabled reports the coverCheck flag.
func (h *Hardware) CoverCheckEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coverCheck
}

// SubscribeCoverState registers a cover transition listener.
func (h *Hardware) SubscribeCoverState() (<-chan bool, func()) {
	h.mu.Lock()
	id := h.nextSubscribe
	h.nextSubscribe++
	ch := make(chan bool, 8)
	h.subscribers[id] = ch
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
		h.mu.Unlock()
	}
	return ch, release
}

// Ensure Hardware implements the hardware facade.
var _ ports.Hardware = (*Hardware)(nil)
