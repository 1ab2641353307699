package wizard

import (
	"testing"

	"govdoc/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func configWith(modules ...domain.ModuleKey) domain.VerificationConfig {
	cfg := domain.VerificationConfig{
		ServiceID: "test-service",
		Modules:   make(map[domain.ModuleKey]domain.ModuleConfig),
	}
	for _, m := range modules {
		cfg.Modules[m] = domain.ModuleConfig{Enabled: true}
	}
	return cfg
}

func stepIDs(steps []domain.StepDescriptor) []domain.StepID {
	ids := make([]domain.StepID, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

func TestVisibleSteps_FiltersDisabledModules(t *testing.T) {
	cfg := configWith(domain.ModulePersonalIdentity)
	session := &domain.WizardSession{}

	steps := VisibleSteps(cfg, session)

	assert.Equal(t, []domain.StepID{
		domain.StepContact,
		domain.StepPersonalIdentity,
		domain.StepOptions,
		domain.StepDelivery,
		domain.StepReview,
	}, stepIDs(steps))
}

func TestVisibleSteps_CompanyDataFollowsClientType(t *testing.T) {
	cfg := configWith(domain.ModuleClientType, domain.ModulePersonalIdentity, domain.ModuleCompanyIdentity)

	natural := &domain.WizardSession{ClientType: domain.ClientTypeNaturalPerson}
	assert.NotContains(t, stepIDs(VisibleSteps(cfg, natural)), domain.StepCompanyData)

	legal := &domain.WizardSession{ClientType: domain.ClientTypeLegalPerson}
	legalSteps := stepIDs(VisibleSteps(cfg, legal))
	assert.Contains(t, legalSteps, domain.StepCompanyData)
	// The representative's identity is still verified for legal persons.
	assert.Contains(t, legalSteps, domain.StepPersonalIdentity)
}

func TestVisibleSteps_UndecidedClientTypeHidesCompanyData(t *testing.T) {
	cfg := configWith(domain.ModuleClientType, domain.ModuleCompanyIdentity)
	session := &domain.WizardSession{}

	assert.NotContains(t, stepIDs(VisibleSteps(cfg, session)), domain.StepCompanyData)
}

func TestVisibleSteps_OrderIsStable(t *testing.T) {
	cfg := configWith(domain.ModulePersonalIdentity, domain.ModuleVehicle, domain.ModuleSignature)
	session := &domain.WizardSession{}

	steps := VisibleSteps(cfg, session)
	for i := 1; i < len(steps); i++ {
		assert.Greater(t, steps[i].Order, steps[i-1].Order)
	}
}

func TestReachable_BeforeCurrentAndNext(t *testing.T) {
	cfg := configWith(domain.ModulePersonalIdentity)
	steps := VisibleSteps(cfg, &domain.WizardSession{})
	// contact, personal_identity, options, delivery, review

	assert.True(t, Reachable(steps, domain.StepOptions, domain.StepContact))
	assert.True(t, Reachable(steps, domain.StepOptions, domain.StepOptions))
	assert.True(t, Reachable(steps, domain.StepOptions, domain.StepDelivery))
	assert.False(t, Reachable(steps, domain.StepOptions, domain.StepReview))
}

func TestReachable_UnknownStepsAreNotReachable(t *testing.T) {
	cfg := configWith(domain.ModulePersonalIdentity)
	steps := VisibleSteps(cfg, &domain.WizardSession{})

	// Vehicle is not part of this service's flow at all.
	assert.False(t, Reachable(steps, domain.StepContact, domain.StepVehicle))
	assert.False(t, Reachable(steps, domain.StepVehicle, domain.StepContact))
}

func TestStepIndex_AbsentStep(t *testing.T) {
	cfg := configWith(domain.ModulePersonalIdentity)
	steps := VisibleSteps(cfg, &domain.WizardSession{})

	assert.Equal(t, -1, StepIndex(steps, domain.StepVehicle))
	assert.Equal(t, 0, StepIndex(steps, domain.StepContact))
}

func TestPossibleSteps_ReturnsCopy(t *testing.T) {
	steps := PossibleSteps()
	steps[0].Label = "mutated"

	assert.Equal(t, "Contact details", PossibleSteps()[0].Label)
}
