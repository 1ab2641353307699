package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"govdoc/internal/billing"
	"govdoc/internal/intake"
	"govdoc/internal/registry"
	"govdoc/internal/verification"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) SaveDraft(ctx context.Context, session *domain.WizardSession) (string, error) {
	args := m.Called(ctx, session)
	return args.String(0), args.Error(1)
}

func (m *MockDraftRepository) FindDraft(ctx context.Context, id uuid.UUID) (*domain.WizardSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WizardSession), args.Error(1)
}

func (m *MockDraftRepository) MarkSubmitted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) Capture(ctx context.Context, req intake.CaptureRequest) (*intake.CaptureOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intake.CaptureOutcome), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) ReconcileAddress(ctx context.Context, userID uuid.UUID, raw domain.Address) (*domain.Address, error) {
	args := m.Called(ctx, userID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *MockReconciler) ReconcileBillingProfile(ctx context.Context, userID uuid.UUID, identity *domain.PersonalIdentity, addr *domain.Address) (*domain.BillingProfile, error) {
	args := m.Called(ctx, userID, identity, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingProfile), args.Error(1)
}

type MockInitiator struct {
	mock.Mock
}

func (m *MockInitiator) Initiate(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, currency string) (string, error) {
	args := m.Called(ctx, orderID, total, currency)
	return args.String(0), args.Error(1)
}

// --- Fixtures ---

func basicDescriptor() *verification.ServiceDescriptor {
	return &verification.ServiceDescriptor{
		Config: domain.VerificationConfig{
			ServiceID: "criminal-record-certificate",
			Modules: map[domain.ModuleKey]domain.ModuleConfig{
				domain.ModulePersonalIdentity: {Enabled: true},
			},
		},
		BasePrice: decimal.NewFromInt(249),
		Currency:  "RON",
		Options: []domain.SelectedOption{
			{Code: "apostille", Label: "Apostille", Price: decimal.NewFromInt(150)},
			{Code: "translation_en", Label: "Certified translation (EN)", Price: decimal.NewFromInt(90)},
		},
		DeliveryPrices: map[domain.DeliveryMethod]decimal.Decimal{
			domain.DeliveryMethodCourier:    decimal.NewFromInt(19),
			domain.DeliveryMethodPickup:     decimal.Zero,
			domain.DeliveryMethodElectronic: decimal.Zero,
		},
	}
}

func expiredTolerantDescriptor() *verification.ServiceDescriptor {
	desc := basicDescriptor()
	desc.Config.Modules[domain.ModulePersonalIdentity] = domain.ModuleConfig{
		Enabled: true,
		Options: domain.ModuleOptions{AllowExpiredDocument: true},
	}
	return desc
}

func newTestStore(repo DraftRepository, capturer Capturer, reconciler Reconciler) *Store {
	billingResolver := billing.NewResolver(nil, logger.NewNop())
	return NewStore(repo, capturer, reconciler, billingResolver, logger.NewNop(), 10*time.Millisecond)
}

// permissiveRepo tolerates the background autosaves every mutation schedules.
func permissiveRepo() *MockDraftRepository {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("", nil).Maybe()
	return repo
}

func initializedStore(repo DraftRepository) *Store {
	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())
	return store
}

// --- InitService ---

func TestInitService_StartsAtFirstVisibleStep(t *testing.T) {
	store := initializedStore(permissiveRepo())

	session := store.Session()
	assert.Equal(t, domain.StepContact, session.CurrentStepID)
	assert.Equal(t, 1, session.StepNumber)
	assert.Equal(t, domain.DraftStatusActive, session.Status)
	assert.True(t, session.Price.TotalPrice.Equal(decimal.NewFromInt(249)))
}

func TestInitService_IdempotentForSameService(t *testing.T) {
	store := newTestStore(permissiveRepo(), new(MockCapturer), new(MockReconciler))
	userID := uuid.New()

	store.InitService(userID, basicDescriptor())
	store.UpdateContact(domain.Contact{Email: "ion@example.com"})
	firstID := store.Session().ID

	// A remount re-fires initialization; nothing may be lost.
	store.InitService(userID, basicDescriptor())

	session := store.Session()
	assert.Equal(t, firstID, session.ID)
	assert.Equal(t, "ion@example.com", session.Contact.Email)
}

func TestStartNewOrder_DiscardsEverything(t *testing.T) {
	store := initializedStore(permissiveRepo())

	store.UpdateContact(domain.Contact{Email: "ion@example.com"})
	store.NextStep()
	oldID := store.Session().ID

	store.StartNewOrder()

	session := store.Session()
	assert.NotEqual(t, oldID, session.ID)
	assert.Empty(t, session.Contact.Email)
	assert.Equal(t, domain.StepContact, session.CurrentStepID)
}

// --- Navigation ---

func TestNavigation_NextAndPrev(t *testing.T) {
	store := initializedStore(permissiveRepo())
	// contact, personal_identity, options, delivery, review

	assert.NoError(t, store.NextStep())
	assert.Equal(t, domain.StepPersonalIdentity, store.Session().CurrentStepID)
	assert.Equal(t, 2, store.Session().StepNumber)

	store.PrevStep()
	assert.Equal(t, domain.StepContact, store.Session().CurrentStepID)
}

func TestNavigation_PrevAtFirstStepIsNoop(t *testing.T) {
	store := initializedStore(permissiveRepo())

	store.PrevStep()

	assert.Equal(t, domain.StepContact, store.Session().CurrentStepID)
	assert.Equal(t, 1, store.Session().StepNumber)
}

func TestNavigation_NextAtLastStepIsNoop(t *testing.T) {
	store := initializedStore(permissiveRepo())

	for i := 0; i < 10; i++ {
		assert.NoError(t, store.NextStep())
	}

	assert.Equal(t, domain.StepReview, store.Session().CurrentStepID)
}

func TestGoToStep_UnreachableIsSilentNoop(t *testing.T) {
	store := initializedStore(permissiveRepo())

	store.GoToStep(domain.StepReview)

	assert.Equal(t, domain.StepContact, store.Session().CurrentStepID)
}

func TestGoToStep_BackwardAlwaysAllowed(t *testing.T) {
	store := initializedStore(permissiveRepo())

	assert.NoError(t, store.NextStep())
	assert.NoError(t, store.NextStep())
	store.GoToStep(domain.StepContact)

	assert.Equal(t, domain.StepContact, store.Session().CurrentStepID)
}

func TestNextStep_BlockedByExpiredDocument(t *testing.T) {
	store := initializedStore(permissiveRepo())

	assert.NoError(t, store.NextStep()) // on personal_identity

	// Simulate a capture that flagged expiry.
	store.mu.Lock()
	store.session.Identity().DocumentExpired = true
	store.mu.Unlock()

	err := store.NextStep()

	assert.ErrorIs(t, err, govdocerrors.ErrExpiredDocument)
	assert.Equal(t, domain.StepPersonalIdentity, store.Session().CurrentStepID)
}

func TestNextStep_ExpiredDocumentAllowedByConfig(t *testing.T) {
	store := newTestStore(permissiveRepo(), new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), expiredTolerantDescriptor())

	assert.NoError(t, store.NextStep())
	store.mu.Lock()
	store.session.Identity().DocumentExpired = true
	store.mu.Unlock()

	assert.NoError(t, store.NextStep())
	assert.Equal(t, domain.StepOptions, store.Session().CurrentStepID)
}

// --- Mutations & pricing ---

func TestUpdateSelectedOptions_RecomputesPrice(t *testing.T) {
	store := initializedStore(permissiveRepo())

	err := store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Quantity: 1},
	})

	assert.NoError(t, err)
	assert.True(t, store.Session().Price.TotalPrice.Equal(decimal.NewFromInt(399)))
}

func TestUpdateSelectedOptions_CatalogPriceWins(t *testing.T) {
	store := initializedStore(permissiveRepo())

	// A tampered price on the selection must not reach the breakdown.
	err := store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Price: decimal.Zero, Quantity: 1},
	})

	assert.NoError(t, err)
	session := store.Session()
	assert.True(t, session.SelectedOptions[0].Price.Equal(decimal.NewFromInt(150)))
	assert.True(t, session.Price.TotalPrice.Equal(decimal.NewFromInt(399)))
}

func TestUpdateSelectedOptions_UnknownCodeRejected(t *testing.T) {
	store := initializedStore(permissiveRepo())

	err := store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Quantity: 1},
		{Code: "free_everything", Quantity: 1},
	})

	assert.ErrorIs(t, err, govdocerrors.ErrUnknownOption)
	// The whole update is rejected, nothing partial lands.
	session := store.Session()
	assert.Empty(t, session.SelectedOptions)
	assert.True(t, session.Price.TotalPrice.Equal(decimal.NewFromInt(249)))
}

func TestUpdateSelectedOptions_ZeroQuantityDropped(t *testing.T) {
	store := initializedStore(permissiveRepo())

	assert.NoError(t, store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Quantity: 1},
	}))
	assert.NoError(t, store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Quantity: 0},
	}))

	session := store.Session()
	assert.Empty(t, session.SelectedOptions)
	assert.True(t, session.Price.TotalPrice.Equal(decimal.NewFromInt(249)))
}

func TestUpdateDelivery_RecomputesPrice(t *testing.T) {
	store := initializedStore(permissiveRepo())

	err := store.UpdateDelivery(domain.Delivery{
		Method: domain.DeliveryMethodCourier,
	})

	assert.NoError(t, err)
	session := store.Session()
	assert.True(t, session.Delivery.Price.Equal(decimal.NewFromInt(19)))
	assert.True(t, session.Price.TotalPrice.Equal(decimal.NewFromInt(268)))
}

func TestUpdateDelivery_CatalogFeeWins(t *testing.T) {
	store := initializedStore(permissiveRepo())

	// A tampered fee on the incoming value is discarded.
	err := store.UpdateDelivery(domain.Delivery{
		Method: domain.DeliveryMethodCourier,
		Price:  decimal.Zero,
	})

	assert.NoError(t, err)
	assert.True(t, store.Session().Price.TotalPrice.Equal(decimal.NewFromInt(268)))
}

func TestUpdateDelivery_UnknownMethodRejected(t *testing.T) {
	store := initializedStore(permissiveRepo())

	err := store.UpdateDelivery(domain.Delivery{Method: "teleport"})

	assert.ErrorIs(t, err, govdocerrors.ErrUnknownDeliveryMethod)
	assert.Empty(t, store.Session().Delivery.Method)
}

func TestUpdatePersonalIdentity_MarksManualFields(t *testing.T) {
	store := initializedStore(permissiveRepo())

	store.UpdatePersonalIdentity(map[string]string{
		domain.FieldFirstName: "Maria-Elena",
	})

	session := store.Session()
	assert.Equal(t, "Maria-Elena", session.PersonalIdentity.FirstName)
	assert.True(t, session.PersonalIdentity.ManualFields[domain.FieldFirstName])
}

// --- CUI verification ---

// slowRegistry answers lookups after a delay, keeping a verification in
// flight long enough for other mutations and saves to overlap it.
type slowRegistry struct {
	delay   time.Duration
	company registry.Company
}

func (r *slowRegistry) FindByTaxID(ctx context.Context, taxID string) (*registry.Company, error) {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	company := r.company
	return &company, nil
}

func TestVerifyCompanyTaxID_ConcurrentEditsDuringLookup(t *testing.T) {
	reg := &slowRegistry{
		delay: 30 * time.Millisecond,
		company: registry.Company{
			LegalName:      "EXEMPLU SRL",
			RegistrationID: "J40/1234/2020",
			Address:        domain.Address{City: "Bucuresti", Street: "Calea Victoriei"},
		},
	}
	resolver := billing.NewResolver(reg, logger.NewNop())
	store := NewStore(permissiveRepo(), new(MockCapturer), new(MockReconciler), resolver, logger.NewNop(), 10*time.Millisecond)
	store.InitService(uuid.New(), basicDescriptor())
	assert.NoError(t, store.SelectBillingSource(domain.BillingSourceCompany))

	done := make(chan error, 1)
	go func() {
		done <- store.VerifyCompanyTaxID(context.Background(), "ro12345678")
	}()

	// Keep editing and saving while the lookup is in flight.
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		store.UpdateBillingFields(domain.BillingState{Address: &domain.Address{City: "Cluj-Napoca"}})
		store.SaveNow()
		_ = store.Session()
	}

	assert.NoError(t, <-done)
	billingState := store.Session().Billing
	assert.True(t, billingState.CUIVerified)
	assert.Equal(t, "RO12345678", billingState.CompanyTaxID)
	assert.Equal(t, "EXEMPLU SRL", billingState.CompanyName)
	assert.Equal(t, "J40/1234/2020", billingState.CompanyRegistrationID)
}

type failingRegistry struct{ err error }

func (r *failingRegistry) FindByTaxID(ctx context.Context, taxID string) (*registry.Company, error) {
	return nil, r.err
}

func TestVerifyCompanyTaxID_LookupFailureClearsVerifiedFlag(t *testing.T) {
	reg := &failingRegistry{err: errors.New("registry unavailable")}
	resolver := billing.NewResolver(reg, logger.NewNop())
	store := NewStore(permissiveRepo(), new(MockCapturer), new(MockReconciler), resolver, logger.NewNop(), 10*time.Millisecond)
	store.InitService(uuid.New(), basicDescriptor())
	assert.NoError(t, store.SelectBillingSource(domain.BillingSourceCompany))

	err := store.VerifyCompanyTaxID(context.Background(), "RO12345678")

	assert.Error(t, err)
	assert.False(t, store.Session().Billing.CUIVerified)
	assert.Empty(t, store.Session().Billing.CompanyName)
}

// --- Document capture ---

func TestCaptureDocument_MergesOutcome(t *testing.T) {
	capturer := new(MockCapturer)
	reconciler := new(MockReconciler)
	store := newTestStore(permissiveRepo(), capturer, reconciler)
	store.InitService(uuid.New(), basicDescriptor())

	capturer.On("Capture", mock.Anything, mock.Anything).Return(&intake.CaptureOutcome{
		CanonicalSlot: domain.SlotIDFront,
		Document:      domain.UploadedDocument{SlotType: domain.SlotIDFront, FileName: "front.jpg"},
		Fields:        map[string]string{domain.FieldFirstName: "Ion"},
	}, nil)

	err := store.CaptureDocument(context.Background(), intake.CaptureRequest{SlotType: domain.SlotIDFront})

	assert.NoError(t, err)
	session := store.Session()
	assert.Len(t, session.PersonalIdentity.Documents, 1)
	assert.Equal(t, "Ion", session.PersonalIdentity.FirstName)
}

func TestCaptureDocument_RejectedCaptureLeavesIdentityUntouched(t *testing.T) {
	capturer := new(MockCapturer)
	store := newTestStore(permissiveRepo(), capturer, new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())

	capturer.On("Capture", mock.Anything, mock.Anything).Return(nil, &intake.LowConfidenceError{Confidence: 20})

	err := store.CaptureDocument(context.Background(), intake.CaptureRequest{SlotType: domain.SlotIDFront})

	assert.ErrorIs(t, err, govdocerrors.ErrLowConfidenceExtraction)
	assert.Nil(t, store.Session().PersonalIdentity)
}

func TestCaptureDocument_ReconciliationFailureDoesNotFailCapture(t *testing.T) {
	capturer := new(MockCapturer)
	reconciler := new(MockReconciler)
	store := newTestStore(permissiveRepo(), capturer, reconciler)
	userID := uuid.New()
	store.InitService(userID, basicDescriptor())

	extractedAddr := domain.Address{Street: "Strada Eroilor", Number: "10"}
	capturer.On("Capture", mock.Anything, mock.Anything).Return(&intake.CaptureOutcome{
		CanonicalSlot: domain.SlotIDBack,
		Document:      domain.UploadedDocument{SlotType: domain.SlotIDBack},
		Address:       &extractedAddr,
	}, nil)
	reconciler.On("ReconcileAddress", mock.Anything, userID, extractedAddr).
		Return(nil, errors.New("db down"))
	// Profile reconciliation still runs on its own; its outcome is irrelevant here.
	reconciler.On("ReconcileBillingProfile", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(nil, nil).Maybe()

	err := store.CaptureDocument(context.Background(), intake.CaptureRequest{SlotType: domain.SlotIDBack})

	assert.NoError(t, err)
	assert.Len(t, store.Session().PersonalIdentity.Documents, 1)
}

func TestCaptureDocument_SavedAddressAttachedToIdentity(t *testing.T) {
	capturer := new(MockCapturer)
	reconciler := new(MockReconciler)
	store := newTestStore(permissiveRepo(), capturer, reconciler)
	userID := uuid.New()
	store.InitService(userID, basicDescriptor())

	extractedAddr := domain.Address{Street: "Strada Eroilor", Number: "10"}
	savedAddr := extractedAddr
	savedAddr.ID = uuid.New()

	capturer.On("Capture", mock.Anything, mock.Anything).Return(&intake.CaptureOutcome{
		CanonicalSlot: domain.SlotIDBack,
		Document:      domain.UploadedDocument{SlotType: domain.SlotIDBack},
		Address:       &extractedAddr,
	}, nil)
	reconciler.On("ReconcileAddress", mock.Anything, userID, extractedAddr).Return(&savedAddr, nil)
	reconciler.On("ReconcileBillingProfile", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(nil, nil)

	err := store.CaptureDocument(context.Background(), intake.CaptureRequest{SlotType: domain.SlotIDBack})

	assert.NoError(t, err)
	assert.Equal(t, savedAddr.ID, store.Session().PersonalIdentity.Address.ID)
}

// --- Autosave ---

func TestAutosave_DebouncedAfterMutation(t *testing.T) {
	repo := new(MockDraftRepository)
	saved := make(chan struct{}, 1)
	repo.On("SaveDraft", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved <- struct{}{} }).
		Return("GD-2026-000123", nil)

	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())

	store.UpdateContact(domain.Contact{Email: "ion@example.com"})

	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatal("autosave did not fire")
	}

	// Give doSave a moment to record the result.
	assert.Eventually(t, func() bool {
		s := store.Session()
		return s.LastSavedAt != nil && s.FriendlyOrderID == "GD-2026-000123"
	}, time.Second, 10*time.Millisecond)
}

func TestAutosave_FailureRecordedStateIntact(t *testing.T) {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())

	store.UpdateContact(domain.Contact{Email: "ion@example.com"})
	store.SaveNow()

	session := store.Session()
	assert.Contains(t, session.SaveError, "connection refused")
	assert.Nil(t, session.LastSavedAt)
	// In-memory edits survive the failed save.
	assert.Equal(t, "ion@example.com", session.Contact.Email)
}

func TestSaveNow_PersistsImmediately(t *testing.T) {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("GD-2026-000007", nil)

	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())

	store.SaveNow()

	session := store.Session()
	assert.NotNil(t, session.LastSavedAt)
	assert.Equal(t, "GD-2026-000007", session.FriendlyOrderID)
	repo.AssertCalled(t, "SaveDraft", mock.Anything, mock.Anything)
}

// --- Submit ---

func submittableStore(repo *MockDraftRepository) *Store {
	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())
	store.UpdatePersonalIdentity(map[string]string{
		domain.FieldFirstName:  "Ion",
		domain.FieldLastName:   "Popescu",
		domain.FieldNationalID: "1800101221144",
	})
	_ = store.SelectBillingSource(domain.BillingSourceSelf)
	return store
}

func TestSubmit_InitiatesPaymentWithFinalTotal(t *testing.T) {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("GD-2026-000042", nil)
	repo.On("MarkSubmitted", mock.Anything, mock.Anything).Return(nil)

	store := submittableStore(repo)
	assert.NoError(t, store.UpdateSelectedOptions([]domain.SelectedOption{
		{Code: "apostille", Quantity: 1},
	}))

	initiator := new(MockInitiator)
	initiator.On("Initiate", mock.Anything, mock.Anything, mock.MatchedBy(func(total decimal.Decimal) bool {
		return total.Equal(decimal.NewFromInt(399))
	}), "RON").Return("https://pay.example.com/r/abc", nil)

	redirect, err := store.Submit(context.Background(), initiator)

	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/r/abc", redirect)

	session := store.Session()
	assert.Equal(t, domain.DraftStatusSubmitted, session.Status)
	assert.NotNil(t, session.OrderID)
	assert.Equal(t, "GD-2026-000042", session.FriendlyOrderID)
	initiator.AssertNumberOfCalls(t, "Initiate", 1)
}

func TestSubmit_InvalidBillingRejected(t *testing.T) {
	repo := new(MockDraftRepository)
	store := newTestStore(repo, new(MockCapturer), new(MockReconciler))
	store.InitService(uuid.New(), basicDescriptor())

	_, err := store.Submit(context.Background(), new(MockInitiator))

	assert.ErrorIs(t, err, govdocerrors.ErrInvalidBillingSource)
	repo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything)
}

func TestSubmit_PaymentFailureKeepsDraftResumable(t *testing.T) {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("GD-2026-000042", nil)

	store := submittableStore(repo)

	initiator := new(MockInitiator)
	initiator.On("Initiate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", govdocerrors.ErrPaymentRejected)

	_, err := store.Submit(context.Background(), initiator)

	assert.ErrorIs(t, err, govdocerrors.ErrPaymentRejected)
	session := store.Session()
	assert.Equal(t, domain.DraftStatusActive, session.Status)
	assert.Nil(t, session.OrderID)
	repo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything)
}

func TestSubmit_SecondSubmitRejected(t *testing.T) {
	repo := new(MockDraftRepository)
	repo.On("SaveDraft", mock.Anything, mock.Anything).Return("GD-2026-000042", nil)
	repo.On("MarkSubmitted", mock.Anything, mock.Anything).Return(nil)

	store := submittableStore(repo)

	initiator := new(MockInitiator)
	initiator.On("Initiate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://pay.example.com/r/abc", nil)

	_, err := store.Submit(context.Background(), initiator)
	assert.NoError(t, err)

	_, err = store.Submit(context.Background(), initiator)
	assert.ErrorIs(t, err, govdocerrors.ErrSessionSubmitted)
	initiator.AssertNumberOfCalls(t, "Initiate", 1)
}
