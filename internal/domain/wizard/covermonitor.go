package wizard

import (
	"context"
	"time"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/check"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
)

// StateCloseCover is surfaced, with priority, while a dangerous check is
// running and the enclosure cover is open.
const StateCloseCover useraction.State = "close_cover"

// coverMonitorInterval is the fallback re-evaluation period, backing
// up the cover events and check change notifications.
const coverMonitorInterval = 250 * time.Millisecond

// coverMonitor is the safety watchdog layered outside each dangerous
// check's own cover gate. It runs for the whole wizard execution.
func (w *Wizard) coverMonitor(ctx context.Context) {
	hw := w.pkg.Hardware
	if hw == nil || !hw.CoverCheckEnabled() {
		return
	}
	events, unsubscribe := hw.SubscribeCoverState()
	defer unsubscribe()

	ticker := time.NewTicker(coverMonitorInterval)
	defer ticker.Stop()

	pushed := false
	evaluate := func() {
		unsafe := w.dangerousRunning() && !hw.IsCoverVirtuallyClosed()
		switch {
		case unsafe && !pushed:
			w.broker.PushStatePriority(StateCloseCover)
			pushed = true
		case !unsafe && pushed:
			w.broker.DropState(StateCloseCover)
			pushed = false
		}
	}

	for {
		select {
		case <-ctx.Done():
			if pushed {
				w.broker.DropState(StateCloseCover)
			}
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			evaluate()
		case <-w.checkEvents:
			evaluate()
		case <-ticker.C:
			evaluate()
		}
	}
}

// dangerousRunning reports whether any cover-gated check is currently
// executing.
func (w *Wizard) dangerousRunning() bool {
	for _, g := range w.groups {
		for _, c := range g.Checks() {
			if c.Dangerous() && c.State() == check.Running {
				return true
			}
		}
	}
	return false
}
