package ports

import "context"

// Hardware is the facade over the printer hardware that the wizard
// engine itself needs. Individual checks pull their own narrow hardware
// accessors through the data package; the engine only depends on motor
// release and cover sensing.
type Hardware interface {
	// MotorsRelease de-energizes all motors. Called unconditionally at
	// the end of every wizard run, whatever the outcome.
	MotorsRelease(ctx context.Context) error

	// IsCoverClosed reports the raw cover sensor.
	IsCoverClosed() bool

	// IsCoverVirtuallyClosed reports the cover state as the safety logic
	// sees it: the raw sensor, or always-closed when cover checking is
	// disabled in the printer configuration.
	IsCoverVirtuallyClosed() bool

	// CoverCheckEnabled reports the coverCheck configuration flag.
	CoverCheckEnabled() bool

	// SubscribeCoverState returns a channel delivering cover-closed
	// transitions and a function releasing the subscription. The channel
	// is closed after the release function is called.
	SubscribeCoverState() (<-chan bool, func())
}
