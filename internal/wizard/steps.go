// Package wizard hosts the step graph engine and the wizard session store.
package wizard

import (
	"govdoc/pkg/domain"
)

// possibleSteps is the full ordered superset of wizard steps. The visible set
// for a session is always a filtered projection of this list; it is never
// mutated.
var possibleSteps = []domain.StepDescriptor{
	{ID: domain.StepContact, Order: 10, Label: "Contact details"},
	{ID: domain.StepClientType, Order: 20, Label: "Client type", ModuleKey: domain.ModuleClientType},
	{ID: domain.StepPersonalIdentity, Order: 30, Label: "Identity verification", ModuleKey: domain.ModulePersonalIdentity},
	{ID: domain.StepCompanyData, Order: 40, Label: "Company data", ModuleKey: domain.ModuleCompanyIdentity},
	{ID: domain.StepProperty, Order: 50, Label: "Property details", ModuleKey: domain.ModuleProperty},
	{ID: domain.StepVehicle, Order: 60, Label: "Vehicle details", ModuleKey: domain.ModuleVehicle},
	{ID: domain.StepSignature, Order: 70, Label: "Signature", ModuleKey: domain.ModuleSignature},
	{ID: domain.StepOptions, Order: 80, Label: "Options"},
	{ID: domain.StepDelivery, Order: 90, Label: "Delivery"},
	{ID: domain.StepReview, Order: 100, Label: "Review and submit"},
}

// PossibleSteps returns a copy of the full step superset ordered by Order.
func PossibleSteps() []domain.StepDescriptor {
	out := make([]domain.StepDescriptor, len(possibleSteps))
	copy(out, possibleSteps)
	return out
}

// VisibleSteps computes the ordered, filtered list of wizard steps from the
// verification configuration plus data-dependent branches. Recomputed on every
// relevant mutation rather than maintained incrementally, so the step graph
// can never drift from the data that produced it.
func VisibleSteps(config domain.VerificationConfig, session *domain.WizardSession) []domain.StepDescriptor {
	visible := make([]domain.StepDescriptor, 0, len(possibleSteps))
	for _, step := range possibleSteps {
		if !stepVisible(step, config, session) {
			continue
		}
		visible = append(visible, step)
	}
	return visible
}

func stepVisible(step domain.StepDescriptor, config domain.VerificationConfig, session *domain.WizardSession) bool {
	// Steps without a module key are part of every flow.
	if step.ModuleKey == "" {
		return true
	}
	if !config.ModuleEnabled(step.ModuleKey) {
		return false
	}

	// Data-dependent branches. Hiding a step never deletes its data; the
	// sub-state stays on the session so toggling the branch back restores it.
	// Only legal persons provide company data. The personal-identity step
	// stays visible for legal persons too: the representative's identity is
	// still verified.
	if step.ID == domain.StepCompanyData {
		return session != nil && session.ClientType == domain.ClientTypeLegalPerson
	}

	return true
}

// StepIndex returns the position of id within steps, or -1 when absent.
func StepIndex(steps []domain.StepDescriptor, id domain.StepID) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Reachable reports whether id may be navigated to: the current step, any
// step strictly before it, or the step immediately after it.
func Reachable(steps []domain.StepDescriptor, current domain.StepID, id domain.StepID) bool {
	cur := StepIndex(steps, current)
	target := StepIndex(steps, id)
	if cur < 0 || target < 0 {
		return false
	}
	return target <= cur+1
}
