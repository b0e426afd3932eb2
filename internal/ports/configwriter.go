package ports

// ConfigWriter stages configuration values discovered during a wizard
// run. Sets are speculative and invisible to the rest of the system
// until Commit; the wizard commits every writer exactly once, only after
// all of its phases have succeeded.
type ConfigWriter interface {
	// Set stages a value under the given key.
	Set(key string, value interface{})

	// Changed reports whether any staged value is pending.
	Changed() bool

	// Commit makes all staged values durable. A writer with no pending
	// values commits as a no-op.
	Commit() error
}
