package wizard

import (
	"golang.org/x/sync/semaphore"

	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// syncPoolSlots bounds how many pooled (blocking) check bodies run at
// once across a wizard.
const syncPoolSlots = 3

// DataPackage is the dependency bundle handed by pointer into every
// check, group and wizard constructor. It has no behavior of its own;
// it is the seam through which the engine consumes its collaborators.
type DataPackage struct {
	// Hardware is the printer hardware facade.
	Hardware ports.Hardware
	// Writers are the config writers the wizard commits after all
	// phases succeed.
	Writers []ports.ConfigWriter
	// Log is the engine logger.
	Log ports.Logger
	// Pool bounds concurrently running pooled check bodies.
	Pool *semaphore.Weighted
}

// NewDataPackage bundles the collaborators with a fresh sync pool.
func NewDataPackage(hw ports.Hardware, log ports.Logger) *DataPackage {
	return &DataPackage{
		Hardware: hw,
		Log:      log,
		Pool:     semaphore.NewWeighted(syncPoolSlots),
	}
}

// AddWriter registers a config writer for commit on success.
func (p *DataPackage) AddWriter(w ports.ConfigWriter) {
	p.Writers = append(p.Writers, w)
}
