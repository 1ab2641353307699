// Package reconcile merges extracted identity data into the user's saved
// address book and billing-profile records.
package reconcile

import (
	"context"
	"strings"

	"govdoc/pkg/domain"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
)

// AddressRepository is the match-or-create contract over the user's shared
// address collection. Upsert must be idempotent for repeated identical scans.
type AddressRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
	Insert(ctx context.Context, userID uuid.UUID, addr *domain.Address) error
	Update(ctx context.Context, userID uuid.UUID, addr *domain.Address) error
}

// BillingProfileRepository is the match-or-create contract over the user's
// shared billing-profile collection.
type BillingProfileRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.BillingProfile, error)
	Insert(ctx context.Context, userID uuid.UUID, profile *domain.BillingProfile) error
	Update(ctx context.Context, userID uuid.UUID, profile *domain.BillingProfile) error
}

// Service reconciles extracted addresses and identities against the saved
// collections. Every method is a background enrichment: callers swallow its
// errors so a reconciliation failure can never fail the capture that
// triggered it.
type Service struct {
	addresses AddressRepository
	profiles  BillingProfileRepository
	logger    logger.Logger
}

func NewService(addresses AddressRepository, profiles BillingProfileRepository, log logger.Logger) *Service {
	return &Service{
		addresses: addresses,
		profiles:  profiles,
		logger:    log,
	}
}

// ReconcileAddress normalizes the extracted address and matches it against
// the user's collection by case-insensitive containment of the street name
// and equality of the street number. A match is updated in place
// (later-extracted fields win over blanks, never the reverse); otherwise a
// new Address is created, default only when the collection was empty.
func (s *Service) ReconcileAddress(ctx context.Context, userID uuid.UUID, raw domain.Address) (*domain.Address, error) {
	addr := NormalizeAddress(raw)
	if addr.Street == "" && addr.City == "" {
		return nil, nil
	}

	existing, err := s.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range existing {
		if !addressMatches(existing[i], addr) {
			continue
		}
		merged := mergeAddress(existing[i], addr)
		if err := s.addresses.Update(ctx, userID, &merged); err != nil {
			return nil, err
		}
		s.logger.Info("address reconciled into existing record", map[string]interface{}{
			"event":      "address_updated",
			"user_id":    userID.String(),
			"address_id": merged.ID.String(),
		})
		return &merged, nil
	}

	addr.ID = uuid.New()
	addr.IsDefault = len(existing) == 0
	if addr.Label == "" {
		addr.Label = "Domiciliu"
	}
	if err := s.addresses.Insert(ctx, userID, &addr); err != nil {
		return nil, err
	}
	s.logger.Info("address created from extraction", map[string]interface{}{
		"event":      "address_created",
		"user_id":    userID.String(),
		"address_id": addr.ID.String(),
		"is_default": addr.IsDefault,
	})
	return &addr, nil
}

// ReconcileBillingProfile matches natural-person profiles by exact national-id
// equality; on match it merges in newly available name and address data,
// otherwise it creates a new profile from the extracted identity.
func (s *Service) ReconcileBillingProfile(ctx context.Context, userID uuid.UUID, identity *domain.PersonalIdentity, addr *domain.Address) (*domain.BillingProfile, error) {
	if identity == nil || identity.NationalID == "" {
		return nil, nil
	}

	existing, err := s.profiles.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range existing {
		p := existing[i]
		if p.IsCompany || p.NationalID != identity.NationalID {
			continue
		}
		if p.FirstName == "" {
			p.FirstName = identity.FirstName
		}
		if p.LastName == "" {
			p.LastName = identity.LastName
		}
		if p.Address == nil && addr != nil {
			p.Address = addr
		}
		if err := s.profiles.Update(ctx, userID, &p); err != nil {
			return nil, err
		}
		s.logger.Info("billing profile reconciled into existing record", map[string]interface{}{
			"event":      "billing_profile_updated",
			"user_id":    userID.String(),
			"profile_id": p.ID.String(),
		})
		return &p, nil
	}

	profile := domain.BillingProfile{
		ID:         uuid.New(),
		IsCompany:  false,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		NationalID: identity.NationalID,
		Address:    addr,
		IsDefault:  len(existing) == 0,
	}
	if err := s.profiles.Insert(ctx, userID, &profile); err != nil {
		return nil, err
	}
	s.logger.Info("billing profile created from extraction", map[string]interface{}{
		"event":      "billing_profile_created",
		"user_id":    userID.String(),
		"profile_id": profile.ID.String(),
	})
	return &profile, nil
}

// addressMatches applies the match heuristic: case-insensitive containment of
// the street name plus equality of the street number.
func addressMatches(existing, candidate domain.Address) bool {
	if candidate.Street == "" || existing.Street == "" {
		return false
	}
	a := strings.ToLower(existing.Street)
	b := strings.ToLower(candidate.Street)
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return false
	}
	return strings.TrimSpace(existing.Number) == strings.TrimSpace(candidate.Number)
}

// mergeAddress fills blanks on the existing record from the newly extracted
// one; populated fields are never regressed to blank.
func mergeAddress(existing, extracted domain.Address) domain.Address {
	out := existing
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&out.Country, extracted.Country)
	fill(&out.County, extracted.County)
	fill(&out.City, extracted.City)
	fill(&out.Building, extracted.Building)
	fill(&out.Staircase, extracted.Staircase)
	fill(&out.Floor, extracted.Floor)
	fill(&out.Apartment, extracted.Apartment)
	fill(&out.PostalCode, extracted.PostalCode)
	return out
}
