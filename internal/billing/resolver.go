// Package billing resolves which identity backs the order invoice and
// verifies company tax ids against the external registry.
package billing

import (
	"context"
	"strings"

	"govdoc/internal/registry"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"
	"govdoc/pkg/validator"
)

// Resolver owns the billing sub-state transitions. CUI verification is an
// explicit action, never a side effect of typing.
type Resolver struct {
	registry registry.Lookup
	logger   logger.Logger
}

func NewResolver(lookup registry.Lookup, log logger.Logger) *Resolver {
	return &Resolver{
		registry: lookup,
		logger:   log,
	}
}

// SelectSource switches the billing source. The fields belonging to the
// previously selected source are cleared, so the switch is not undoable by
// switching back.
func (r *Resolver) SelectSource(state *domain.BillingState, source domain.BillingSource) error {
	switch source {
	case domain.BillingSourceSelf, domain.BillingSourceOtherPerson, domain.BillingSourceCompany:
	default:
		return govdocerrors.ErrInvalidBillingSource
	}

	if state.Source == source {
		return nil
	}

	switch state.Source {
	case domain.BillingSourceOtherPerson:
		state.PersonFirstName = ""
		state.PersonLastName = ""
		state.PersonNationalID = ""
		state.Address = nil
	case domain.BillingSourceCompany:
		state.CompanyName = ""
		state.CompanyRegistrationID = ""
		state.CompanyTaxID = ""
		state.CUIVerified = false
		state.Address = nil
	}

	state.Source = source
	return nil
}

// VerifyCUI resolves the company behind a raw tax identifier. Success
// auto-fills legal name, registration id, and address and marks the state
// verified. Any failure leaves existing field values untouched, clears the
// verified flag, and returns the registry's message.
func (r *Resolver) VerifyCUI(ctx context.Context, state *domain.BillingState, rawTaxID string) error {
	taxID := strings.ToUpper(strings.TrimSpace(rawTaxID))

	company, err := r.registry.FindByTaxID(ctx, taxID)
	if err != nil {
		state.CUIVerified = false
		r.logger.Warn("cui verification failed", map[string]interface{}{
			"event":  "cui_verification_failed",
			"tax_id": taxID,
			"error":  err.Error(),
		})
		return err
	}

	state.CompanyTaxID = taxID
	state.CompanyName = company.LegalName
	state.CompanyRegistrationID = company.RegistrationID
	addr := company.Address
	state.Address = &addr
	state.CUIVerified = true

	r.logger.Info("cui verified", map[string]interface{}{
		"event":      "cui_verified",
		"tax_id":     taxID,
		"legal_name": company.LegalName,
	})
	return nil
}

// Validate reports whether the billing sub-state is complete for submission.
// Self and other-person sources require non-empty name fields and a
// syntactically plausible national id; the company source requires a verified
// tax id plus a non-empty legal name.
func Validate(state *domain.BillingState, identity *domain.PersonalIdentity) error {
	if state == nil {
		return govdocerrors.ErrInvalidBillingSource
	}

	switch state.Source {
	case domain.BillingSourceSelf:
		if identity == nil || identity.FirstName == "" || identity.LastName == "" {
			return govdocerrors.Wrap(govdocerrors.ErrInvalidBillingSource, "personal identity incomplete")
		}
		if !validator.PlausibleNationalID(identity.NationalID) {
			return govdocerrors.ErrInvalidNationalID
		}
	case domain.BillingSourceOtherPerson:
		if state.PersonFirstName == "" || state.PersonLastName == "" {
			return govdocerrors.Wrap(govdocerrors.ErrInvalidBillingSource, "person name required")
		}
		if !validator.PlausibleNationalID(state.PersonNationalID) {
			return govdocerrors.ErrInvalidNationalID
		}
	case domain.BillingSourceCompany:
		if !state.CUIVerified {
			return govdocerrors.ErrCUINotVerified
		}
		if state.CompanyName == "" {
			return govdocerrors.Wrap(govdocerrors.ErrInvalidBillingSource, "company legal name required")
		}
	default:
		return govdocerrors.ErrInvalidBillingSource
	}

	return nil
}

// ResolveProfile materializes the billing identity selected by the state into
// a reusable BillingProfile shape. Self billing reads the confirmed personal
// identity; its fields are read-only from the billing step's perspective.
func ResolveProfile(state *domain.BillingState, identity *domain.PersonalIdentity) *domain.BillingProfile {
	if state == nil {
		return nil
	}
	switch state.Source {
	case domain.BillingSourceSelf:
		if identity == nil {
			return nil
		}
		return &domain.BillingProfile{
			FirstName:  identity.FirstName,
			LastName:   identity.LastName,
			NationalID: identity.NationalID,
			Address:    identity.Address,
		}
	case domain.BillingSourceOtherPerson:
		return &domain.BillingProfile{
			FirstName:  state.PersonFirstName,
			LastName:   state.PersonLastName,
			NationalID: state.PersonNationalID,
			Address:    state.Address,
		}
	case domain.BillingSourceCompany:
		return &domain.BillingProfile{
			IsCompany:      true,
			CompanyName:    state.CompanyName,
			RegistrationID: state.CompanyRegistrationID,
			TaxID:          state.CompanyTaxID,
			Address:        state.Address,
		}
	}
	return nil
}
