package wizard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"govdoc/internal/billing"
	"govdoc/internal/intake"
	"govdoc/internal/pricing"
	"govdoc/internal/verification"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftRepository is the persistence contract for wizard drafts. The store
// only cares about read/write keyed by the draft id; the server-assigned
// friendly order code comes back from the first successful save.
type DraftRepository interface {
	SaveDraft(ctx context.Context, session *domain.WizardSession) (friendlyOrderID string, err error)
	FindDraft(ctx context.Context, id uuid.UUID) (*domain.WizardSession, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID) error
}

// Capturer runs a document capture through the intake pipeline.
type Capturer interface {
	Capture(ctx context.Context, req intake.CaptureRequest) (*intake.CaptureOutcome, error)
}

// Reconciler enriches the shared address and billing-profile collections.
// Both calls are background enrichments whose failures the store swallows.
type Reconciler interface {
	ReconcileAddress(ctx context.Context, userID uuid.UUID, raw domain.Address) (*domain.Address, error)
	ReconcileBillingProfile(ctx context.Context, userID uuid.UUID, identity *domain.PersonalIdentity, addr *domain.Address) (*domain.BillingProfile, error)
}

// PaymentInitiator is invoked once, at submission, with the final total.
type PaymentInitiator interface {
	Initiate(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, currency string) (string, error)
}

// Store owns one wizard session draft and its navigation state machine.
// Mutations apply the partial update, mark the session dirty, schedule the
// debounced autosave, and recompute the price breakdown when relevant.
type Store struct {
	mu sync.Mutex

	session *domain.WizardSession
	desc    *verification.ServiceDescriptor

	repo       DraftRepository
	capturer   Capturer
	reconciler Reconciler
	billing    *billing.Resolver
	saver      *autosaver
	logger     logger.Logger

	dirty         bool
	inFlightSlots map[domain.SlotType]bool
}

// NewStore builds an empty store; InitService creates the session.
func NewStore(repo DraftRepository, capturer Capturer, reconciler Reconciler, billingResolver *billing.Resolver, log logger.Logger, debounce time.Duration) *Store {
	s := &Store{
		repo:          repo,
		capturer:      capturer,
		reconciler:    reconciler,
		billing:       billingResolver,
		logger:        log,
		inFlightSlots: make(map[domain.SlotType]bool),
	}
	s.saver = newAutosaver(debounce, s.doSave)
	return s
}

// InitService creates the session for a service. Idempotent: when a session
// already exists for the same service it is a no-op, so a remount never loses
// in-progress data.
func (s *Store) InitService(userID uuid.UUID, desc *verification.ServiceDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.ServiceID == desc.Config.ServiceID {
		return
	}

	s.desc = desc
	s.session = s.freshSession(userID, desc)
}

// StartNewOrder discards the session and all step sub-states and returns to
// the first step.
func (s *Store) StartNewOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.desc == nil {
		return
	}
	s.session = s.freshSession(s.session.UserID, s.desc)
	s.dirty = false
}

func (s *Store) freshSession(userID uuid.UUID, desc *verification.ServiceDescriptor) *domain.WizardSession {
	now := time.Now()
	sess := &domain.WizardSession{
		ID:        uuid.New(),
		UserID:    userID,
		ServiceID: desc.Config.ServiceID,
		BasePrice: desc.BasePrice,
		Currency:  desc.Currency,
		Status:    domain.DraftStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	steps := VisibleSteps(desc.Config, sess)
	if len(steps) > 0 {
		sess.CurrentStepID = steps[0].ID
		sess.StepNumber = 1
	}
	sess.Price = pricing.ForSession(sess)
	return sess
}

// Load adopts a persisted draft and its service descriptor, e.g. after a
// restart. The price breakdown is recomputed rather than trusted from disk.
func (s *Store) Load(sess *domain.WizardSession, desc *verification.ServiceDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = desc
	s.session = sess
	s.session.IsSaving = false
	s.session.Price = pricing.ForSession(s.session)
}

// Session returns a deep snapshot of the draft.
func (s *Store) Session() *domain.WizardSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session)
}

// ==============================================================================
// NAVIGATION
// ==============================================================================

// Steps returns the current visible step projection.
func (s *Store) Steps() []domain.StepDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleStepsLocked()
}

func (s *Store) visibleStepsLocked() []domain.StepDescriptor {
	if s.desc == nil || s.session == nil {
		return nil
	}
	return VisibleSteps(s.desc.Config, s.session)
}

// GoToStep navigates to id when it is reachable; otherwise it is a silent
// no-op and the current step is unchanged.
func (s *Store) GoToStep(id domain.StepID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.visibleStepsLocked()
	if !Reachable(steps, s.session.CurrentStepID, id) {
		return
	}
	cur := StepIndex(steps, s.session.CurrentStepID)
	target := StepIndex(steps, id)
	if target > cur && s.currentStepBlockedLocked() {
		return
	}
	s.setStepLocked(steps, target)
}

// NextStep advances one position in the visible list; a no-op at the terminal
// boundary. Advancing past an invalid step (e.g. an expired document the
// service does not accept) is refused.
func (s *Store) NextStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.visibleStepsLocked()
	cur := StepIndex(steps, s.session.CurrentStepID)
	if cur < 0 || cur+1 >= len(steps) {
		return nil
	}
	if s.currentStepBlockedLocked() {
		return govdocerrors.ErrExpiredDocument
	}
	s.setStepLocked(steps, cur+1)
	return nil
}

// PrevStep moves one position back; a no-op at the initial boundary.
func (s *Store) PrevStep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.visibleStepsLocked()
	cur := StepIndex(steps, s.session.CurrentStepID)
	if cur <= 0 {
		return
	}
	s.setStepLocked(steps, cur-1)
}

func (s *Store) setStepLocked(steps []domain.StepDescriptor, index int) {
	s.session.CurrentStepID = steps[index].ID
	s.session.StepNumber = index + 1
	s.markDirtyLocked(false)
}

// currentStepBlockedLocked reports whether the current step is invalid in a
// way that blocks forward navigation.
func (s *Store) currentStepBlockedLocked() bool {
	if s.session.CurrentStepID != domain.StepPersonalIdentity {
		return false
	}
	identity := s.session.PersonalIdentity
	if identity == nil || !identity.DocumentExpired {
		return false
	}
	return !s.desc.Config.OptionsFor(domain.ModulePersonalIdentity).AllowExpiredDocument
}

// ==============================================================================
// MUTATIONS
// ==============================================================================

// UpdateContact merges the non-empty contact fields into the draft.
func (s *Store) UpdateContact(patch domain.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fill(&s.session.Contact.Email, patch.Email)
	fill(&s.session.Contact.Phone, patch.Phone)
	fill(&s.session.Contact.FirstName, patch.FirstName)
	fill(&s.session.Contact.LastName, patch.LastName)
	s.markDirtyLocked(false)
}

// SetClientType records the client-type choice. Steps hidden by the new
// branch keep their data; only visibility changes.
func (s *Store) SetClientType(ct domain.ClientType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.ClientType = ct
	s.markDirtyLocked(false)
}

// UpdatePersonalIdentity applies hand-entered identity fields and records
// them as manual so later extractions do not blindly overwrite them.
func (s *Store) UpdatePersonalIdentity(fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := s.session.Identity()
	if identity.ManualFields == nil {
		identity.ManualFields = make(map[string]bool)
	}

	scalar := map[string]*string{
		domain.FieldNationalID:     &identity.NationalID,
		domain.FieldFirstName:      &identity.FirstName,
		domain.FieldLastName:       &identity.LastName,
		domain.FieldBirthDate:      &identity.BirthDate,
		domain.FieldBirthPlace:     &identity.BirthPlace,
		domain.FieldMotherName:     &identity.MotherName,
		domain.FieldFatherName:     &identity.FatherName,
		domain.FieldDocumentSeries: &identity.DocumentSeries,
		domain.FieldDocumentNumber: &identity.DocumentNumber,
		domain.FieldIssuedBy:       &identity.IssuedBy,
		domain.FieldIssueDate:      &identity.IssueDate,
		domain.FieldExpiryDate:     &identity.ExpiryDate,
	}

	for key, value := range fields {
		if dst, ok := scalar[key]; ok {
			*dst = value
			identity.ManualFields[key] = true
		}
	}

	s.markDirtyLocked(false)
}

// SelectBillingSource switches the billing source, clearing the previous
// source's fields.
func (s *Store) SelectBillingSource(source domain.BillingSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Billing == nil {
		s.session.Billing = &domain.BillingState{}
	}
	if err := s.billing.SelectSource(s.session.Billing, source); err != nil {
		return err
	}
	s.markDirtyLocked(false)
	return nil
}

// UpdateBillingFields merges manually entered billing fields for the active
// source.
func (s *Store) UpdateBillingFields(patch domain.BillingState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Billing == nil {
		s.session.Billing = &domain.BillingState{}
	}
	b := s.session.Billing
	fill(&b.PersonFirstName, patch.PersonFirstName)
	fill(&b.PersonLastName, patch.PersonLastName)
	fill(&b.PersonNationalID, patch.PersonNationalID)
	fill(&b.CompanyName, patch.CompanyName)
	fill(&b.CompanyRegistrationID, patch.CompanyRegistrationID)
	fill(&b.CompanyTaxID, patch.CompanyTaxID)
	if patch.Address != nil {
		b.Address = patch.Address
	}
	s.markDirtyLocked(false)
}

// VerifyCompanyTaxID runs the explicit CUI verification action. The registry
// round-trip works on a scratch copy of the billing sub-state so no lock is
// held during the lookup; the result is merged under the lock, the same way
// capture outcomes are.
func (s *Store) VerifyCompanyTaxID(ctx context.Context, rawTaxID string) error {
	s.mu.Lock()
	if s.session.Billing == nil {
		s.session.Billing = &domain.BillingState{}
	}
	scratch := *s.session.Billing
	s.mu.Unlock()

	err := s.billing.VerifyCUI(ctx, &scratch, rawTaxID)

	s.mu.Lock()
	b := s.session.Billing
	if err != nil {
		b.CUIVerified = false
	} else {
		b.CompanyTaxID = scratch.CompanyTaxID
		b.CompanyName = scratch.CompanyName
		b.CompanyRegistrationID = scratch.CompanyRegistrationID
		b.Address = scratch.Address
		b.CUIVerified = true
	}
	s.markDirtyLocked(false)
	s.mu.Unlock()
	return err
}

// UpdateDelivery replaces the delivery preference and recomputes the price.
// The delivery fee is looked up by method in the service catalog; any amount
// on the incoming value is discarded.
func (s *Store) UpdateDelivery(delivery domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.desc.DeliveryPrices[delivery.Method]
	if !ok {
		return govdocerrors.Wrap(govdocerrors.ErrUnknownDeliveryMethod, string(delivery.Method))
	}
	delivery.Price = price
	s.session.Delivery = delivery
	s.markDirtyLocked(true)
	return nil
}

// UpdateSelectedOptions replaces the selected add-ons and recomputes the
// price. Selections carry only a code and quantity; the price and label come
// from the service catalog, and an unknown code rejects the whole update.
// Zero-quantity selections are dropped.
func (s *Store) UpdateSelectedOptions(selections []domain.SelectedOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := make([]domain.SelectedOption, 0, len(selections))
	for _, sel := range selections {
		opt, ok := s.desc.Option(sel.Code)
		if !ok {
			return govdocerrors.Wrap(govdocerrors.ErrUnknownOption, sel.Code)
		}
		if sel.Quantity <= 0 {
			continue
		}
		opt.Quantity = sel.Quantity
		resolved = append(resolved, opt)
	}
	s.session.SelectedOptions = resolved
	s.markDirtyLocked(true)
	return nil
}

func (s *Store) markDirtyLocked(priceRelevant bool) {
	s.dirty = true
	s.session.UpdatedAt = time.Now()
	if priceRelevant {
		s.session.Price = pricing.ForSession(s.session)
	}
	s.saver.Trigger()
}

func fill(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// ==============================================================================
// DOCUMENT CAPTURE
// ==============================================================================

// CaptureDocument runs one capture for a logical slot through the intake
// pipeline and merges the accepted outcome into the identity sub-state. The
// extraction round-trip holds no store lock, so other fields stay editable
// while a capture is in flight. A second capture for the same slot while one
// is pending is refused.
func (s *Store) CaptureDocument(ctx context.Context, req intake.CaptureRequest) error {
	s.mu.Lock()
	if s.inFlightSlots[req.SlotType] {
		s.mu.Unlock()
		return govdocerrors.ErrCaptureInFlight
	}
	s.inFlightSlots[req.SlotType] = true
	userID := s.session.UserID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlightSlots, req.SlotType)
		s.mu.Unlock()
	}()

	outcome, err := s.capturer.Capture(ctx, req)
	if err != nil {
		// Rejected captures leave the identity sub-state untouched.
		return err
	}

	s.mu.Lock()
	intake.MergeOutcome(s.session.Identity(), outcome)
	identitySnapshot := cloneIdentity(s.session.PersonalIdentity)
	s.markDirtyLocked(false)
	s.mu.Unlock()

	s.logger.Info("document captured", map[string]interface{}{
		"event":          "document_captured",
		"slot_type":      string(req.SlotType),
		"canonical_slot": string(outcome.CanonicalSlot),
	})

	// Address and billing-profile enrichment are independently failable side
	// effects; each is swallowed at its own boundary so it can never abort
	// the already-successful capture.
	if outcome.Address != nil {
		saved, rerr := s.reconciler.ReconcileAddress(ctx, userID, *outcome.Address)
		if rerr != nil {
			s.logger.Warn("address reconciliation failed", map[string]interface{}{
				"event": "address_reconciliation_failed",
				"error": rerr.Error(),
			})
		} else if saved != nil {
			s.mu.Lock()
			s.session.Identity().Address = saved
			s.markDirtyLocked(false)
			s.mu.Unlock()
			identitySnapshot.Address = saved
		}

		if _, perr := s.reconciler.ReconcileBillingProfile(ctx, userID, identitySnapshot, identitySnapshot.Address); perr != nil {
			s.logger.Warn("billing profile reconciliation failed", map[string]interface{}{
				"event": "billing_profile_reconciliation_failed",
				"error": perr.Error(),
			})
		}
	}

	return nil
}

// ==============================================================================
// PERSISTENCE
// ==============================================================================

// SaveNow persists immediately, bypassing the debounce but still respecting
// the in-flight flag.
func (s *Store) SaveNow() {
	s.saver.Flush()
}

// doSave is the autosaver's single save path. A failed save records the
// error and leaves all in-memory state intact; the user may retry manually.
func (s *Store) doSave() {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.session.IsSaving = true
	snapshot := cloneSession(s.session)
	s.mu.Unlock()

	friendly, err := s.repo.SaveDraft(context.Background(), snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.IsSaving = false
	if err != nil {
		s.session.SaveError = err.Error()
		s.logger.Error("draft autosave failed", map[string]interface{}{
			"event":    "autosave_failed",
			"draft_id": s.session.ID.String(),
			"error":    err.Error(),
		})
		return
	}
	now := time.Now()
	s.session.LastSavedAt = &now
	s.session.SaveError = ""
	s.dirty = false
	if s.session.FriendlyOrderID == "" && friendly != "" {
		s.session.FriendlyOrderID = friendly
	}
}

// Submit finalizes the draft: a synchronous save, the submitted mark, and a
// single payment initiation with the final total. A failed submission keeps
// the draft resumable.
func (s *Store) Submit(ctx context.Context, initiator PaymentInitiator) (string, error) {
	s.mu.Lock()
	if s.session.Status == domain.DraftStatusSubmitted {
		s.mu.Unlock()
		return "", govdocerrors.ErrSessionSubmitted
	}
	if err := billing.Validate(s.session.Billing, s.session.PersonalIdentity); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.session.Price = pricing.ForSession(s.session)
	snapshot := cloneSession(s.session)
	s.mu.Unlock()

	friendly, err := s.repo.SaveDraft(ctx, snapshot)
	if err != nil {
		s.mu.Lock()
		s.session.SaveError = err.Error()
		s.mu.Unlock()
		return "", govdocerrors.Wrap(err, "final save failed")
	}

	// Payment goes first: a rejected initiation leaves the draft active and
	// resumable. The submitted mark only lands once a redirect exists.
	redirect, err := initiator.Initiate(ctx, snapshot.ID, snapshot.Price.TotalPrice, snapshot.Price.Currency)
	if err != nil {
		return "", err
	}

	if err := s.repo.MarkSubmitted(ctx, snapshot.ID); err != nil {
		return "", govdocerrors.Wrap(err, "failed to mark order submitted")
	}

	s.mu.Lock()
	s.session.Status = domain.DraftStatusSubmitted
	orderID := snapshot.ID
	s.session.OrderID = &orderID
	if s.session.FriendlyOrderID == "" && friendly != "" {
		s.session.FriendlyOrderID = friendly
	}
	s.session.SaveError = ""
	s.mu.Unlock()

	s.logger.Info("order submitted", map[string]interface{}{
		"event":    "order_submitted",
		"order_id": orderID.String(),
		"total":    snapshot.Price.TotalPrice.StringFixed(2),
	})

	return redirect, nil
}

// cloneSession deep-copies the draft via its JSON shape; drafts are persisted
// as JSON documents anyway.
func cloneSession(s *domain.WizardSession) *domain.WizardSession {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		dup := *s
		return &dup
	}
	var out domain.WizardSession
	if err := json.Unmarshal(data, &out); err != nil {
		dup := *s
		return &dup
	}
	return &out
}

func cloneIdentity(identity *domain.PersonalIdentity) *domain.PersonalIdentity {
	if identity == nil {
		return nil
	}
	data, err := json.Marshal(identity)
	if err != nil {
		dup := *identity
		return &dup
	}
	var out domain.PersonalIdentity
	if err := json.Unmarshal(data, &out); err != nil {
		dup := *identity
		return &dup
	}
	return &out
}
