package ipc

import (
	"github.com/jaczemann/sla-fw-sub001/internal/domain/useraction"
	"github.com/jaczemann/sla-fw-sub001/internal/domain/wizard"
)

// WizardProvider adapts a wizard to the Provider interface.
type WizardProvider struct {
	wizard *wizard.Wizard
}

// NewWizardProvider wraps the given wizard.
func NewWizardProvider(w *wizard.Wizard) *WizardProvider {
	return &WizardProvider{wizard: w}
}

// Status snapshots the wizard for a status response.
func (p *WizardProvider) Status() StatusResponse {
	checks := make(map[string]CheckStatus)
	for id, data := range p.wizard.CheckData() {
		checks[string(id)] = CheckStatus{
			State:    data.State.String(),
			Progress: data.Progress,
		}
	}

	var warnings []string
	for _, warn := range p.wizard.Warnings() {
		warnings = append(warnings, warn.Error())
	}

	return StatusResponse{
		Wizard:   string(p.wizard.ID()),
		RunID:    p.wizard.RunID().String(),
		State:    string(p.wizard.State()),
		Checks:   checks,
		Warnings: warnings,
	}
}

// Cancel cancels the wizard, forcing past a non-cancelable declaration
// when asked to.
func (p *WizardProvider) Cancel(force bool) error {
	if force {
		p.wizard.ForceCancel()
		return nil
	}
	return p.wizard.Cancel()
}

// Resolve triggers the named user action on the wizard's broker.
func (p *WizardProvider) Resolve(action string) error {
	return p.wizard.Broker().Resolve(useraction.Action(action))
}

// Ensure WizardProvider implements Provider.
var _ Provider = (*WizardProvider)(nil)
