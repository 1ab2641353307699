// ==============================================================================
// WIZARD HTTP HANDLER - internal/handler/wizard.go
// ==============================================================================
// HTTP surface of the order wizard: draft lifecycle, step navigation, field
// updates, document capture, billing actions, and submission.
// ==============================================================================

package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"govdoc/internal/intake"
	"govdoc/internal/middleware"
	"govdoc/internal/verification"
	"govdoc/internal/wizard"
	"govdoc/pkg/config"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"
	"govdoc/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ==============================================================================
// WIZARD HANDLER STRUCT
// ==============================================================================

type WizardHandler struct {
	manager   *wizard.Manager
	services  *verification.Resolver
	payments  wizard.PaymentInitiator
	validator *validator.Validator
	logger    logger.Logger
	intake    config.IntakeConfig
}

func NewWizardHandler(manager *wizard.Manager, services *verification.Resolver, payments wizard.PaymentInitiator, val *validator.Validator, log logger.Logger, intakeCfg config.IntakeConfig) *WizardHandler {
	return &WizardHandler{
		manager:   manager,
		services:  services,
		payments:  payments,
		validator: val,
		logger:    log,
		intake:    intakeCfg,
	}
}

// RegisterRoutes mounts the wizard API on an authenticated subrouter.
func (h *WizardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/services/{serviceId}/config", h.GetServiceConfig).Methods("GET")

	r.HandleFunc("/wizard/sessions", h.CreateSession).Methods("POST")
	r.HandleFunc("/wizard/sessions/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/wizard/sessions/{id}/restart", h.Restart).Methods("POST")
	r.HandleFunc("/wizard/sessions/{id}/navigate", h.Navigate).Methods("POST")

	r.HandleFunc("/wizard/sessions/{id}/contact", h.UpdateContact).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/client-type", h.SetClientType).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/identity", h.UpdateIdentity).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/delivery", h.UpdateDelivery).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/options", h.UpdateOptions).Methods("PUT")

	r.HandleFunc("/wizard/sessions/{id}/billing/source", h.SelectBillingSource).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/billing/fields", h.UpdateBillingFields).Methods("PATCH")
	r.HandleFunc("/wizard/sessions/{id}/billing/verify-cui", h.VerifyCUI).Methods("POST")

	r.HandleFunc("/wizard/sessions/{id}/documents", h.CaptureDocument).Methods("POST")
	r.HandleFunc("/wizard/sessions/{id}/save", h.SaveNow).Methods("POST")
}

// ==============================================================================
// HELPER METHODS (following auth handler pattern)
// ==============================================================================

func (h *WizardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":   err.Error(),
			"status":  status,
			"handler": "wizard",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

func (h *WizardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *WizardHandler) parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"error":    err.Error(),
			"handler":  "wizard",
			"endpoint": r.URL.Path,
		})
		h.respondError(w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

func (h *WizardHandler) getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.logger.Warn("Missing user ID in context", map[string]interface{}{
			"handler":  "wizard",
			"endpoint": r.URL.Path,
			"ip":       r.RemoteAddr,
		})
		return uuid.Nil, false
	}
	return userID, true
}

// getStore resolves the draft id from the URL, loads its store, and checks
// ownership. Writes the error response itself on failure.
func (h *WizardHandler) getStore(w http.ResponseWriter, r *http.Request) (*wizard.Store, uuid.UUID, bool) {
	userID, ok := h.getUserIDFromContext(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return nil, uuid.Nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid session id")
		return nil, uuid.Nil, false
	}

	store, err := h.manager.Get(r.Context(), id)
	if err != nil {
		if govdocerrors.Is(err, govdocerrors.ErrSessionNotFound) {
			h.respondError(w, http.StatusNotFound, "Session not found")
		} else {
			h.logger.Error("Failed to load session", map[string]interface{}{
				"error":      err.Error(),
				"session_id": id.String(),
			})
			h.respondError(w, http.StatusInternalServerError, "Failed to load session")
		}
		return nil, uuid.Nil, false
	}

	if err := h.manager.Owns(store, userID); err != nil {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return nil, uuid.Nil, false
	}

	return store, userID, true
}

type sessionResponse struct {
	Session *domain.WizardSession   `json:"session"`
	Steps   []domain.StepDescriptor `json:"steps"`
}

func (h *WizardHandler) respondSession(w http.ResponseWriter, status int, store *wizard.Store) {
	h.respondJSON(w, status, sessionResponse{
		Session: store.Session(),
		Steps:   store.Steps(),
	})
}

// ==============================================================================
// SERVICE CONFIGURATION
// ==============================================================================

// GetServiceConfig returns the verification configuration and pricing inputs
// for a service.
// GET /services/{serviceId}/config
func (h *WizardHandler) GetServiceConfig(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["serviceId"]

	desc, err := h.services.Resolve(r.Context(), serviceID)
	if err != nil {
		if govdocerrors.Is(err, govdocerrors.ErrUnknownService) {
			h.respondError(w, http.StatusNotFound, "Unknown service")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to resolve service configuration")
		return
	}

	h.respondJSON(w, http.StatusOK, desc)
}

// ==============================================================================
// SESSION LIFECYCLE
// ==============================================================================

// CreateSession starts a wizard draft for a service.
// POST /wizard/sessions
func (h *WizardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.getUserIDFromContext(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	var req struct {
		ServiceID string `json:"service_id" validate:"required"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	desc, err := h.services.Resolve(r.Context(), req.ServiceID)
	if err != nil {
		if govdocerrors.Is(err, govdocerrors.ErrUnknownService) {
			h.respondError(w, http.StatusNotFound, "Unknown service")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to resolve service configuration")
		return
	}

	store := h.manager.Create(userID, desc)

	h.logger.Info("Wizard session created", map[string]interface{}{
		"event":      "wizard_session_created",
		"user_id":    userID.String(),
		"service_id": req.ServiceID,
	})

	h.respondSession(w, http.StatusCreated, store)
}

// GetSession returns the draft snapshot with its visible steps.
// GET /wizard/sessions/{id}
func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}
	h.respondSession(w, http.StatusOK, store)
}

// Restart discards all entered data and returns the draft to its first step.
// POST /wizard/sessions/{id}/restart
func (h *WizardHandler) Restart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}
	store.StartNewOrder()
	h.respondSession(w, http.StatusOK, store)
}

// ==============================================================================
// NAVIGATION
// ==============================================================================

// Navigate moves the wizard forward, backward, or to a reachable step.
// POST /wizard/sessions/{id}/navigate
func (h *WizardHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Direction string `json:"direction,omitempty" validate:"omitempty,oneof=next prev"`
		StepID    string `json:"step_id,omitempty"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	switch {
	case req.Direction == "next":
		if err := store.NextStep(); err != nil {
			h.respondError(w, http.StatusConflict, "Document is expired and not accepted for this service")
			return
		}
	case req.Direction == "prev":
		store.PrevStep()
	case req.StepID != "":
		store.GoToStep(domain.StepID(req.StepID))
	default:
		h.respondError(w, http.StatusBadRequest, "direction or step_id is required")
		return
	}

	h.respondSession(w, http.StatusOK, store)
}

// ==============================================================================
// FIELD UPDATES
// ==============================================================================

// UpdateContact merges contact fields.
// PATCH /wizard/sessions/{id}/contact
func (h *WizardHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Email     string `json:"email,omitempty" validate:"omitempty,email"`
		Phone     string `json:"phone,omitempty"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	store.UpdateContact(domain.Contact{
		Email:     validator.Sanitize(req.Email),
		Phone:     validator.Sanitize(req.Phone),
		FirstName: validator.Sanitize(req.FirstName),
		LastName:  validator.Sanitize(req.LastName),
	})
	h.respondSession(w, http.StatusOK, store)
}

// SetClientType records the natural/legal person branch choice.
// PATCH /wizard/sessions/{id}/client-type
func (h *WizardHandler) SetClientType(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		ClientType string `json:"client_type" validate:"required,oneof=natural_person legal_person"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	store.SetClientType(domain.ClientType(req.ClientType))
	h.respondSession(w, http.StatusOK, store)
}

// UpdateIdentity applies hand-entered identity fields.
// PATCH /wizard/sessions/{id}/identity
func (h *WizardHandler) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Fields map[string]string `json:"fields" validate:"required"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	for key, value := range req.Fields {
		req.Fields[key] = validator.Sanitize(value)
	}

	store.UpdatePersonalIdentity(req.Fields)
	h.respondSession(w, http.StatusOK, store)
}

// UpdateDelivery replaces the delivery preference. The delivery fee is
// resolved server-side from the service catalog.
// PATCH /wizard/sessions/{id}/delivery
func (h *WizardHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Method  string          `json:"method" validate:"required,oneof=courier electronic pickup"`
		Address *domain.Address `json:"address,omitempty"`
		Notes   string          `json:"notes,omitempty"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	err := store.UpdateDelivery(domain.Delivery{
		Method:  domain.DeliveryMethod(req.Method),
		Address: req.Address,
		Notes:   validator.Sanitize(req.Notes),
	})
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "Delivery method is not available for this service")
		return
	}
	h.respondSession(w, http.StatusOK, store)
}

// UpdateOptions replaces the selected add-ons. Requests carry only option
// codes and quantities; prices are resolved server-side from the service
// catalog.
// PUT /wizard/sessions/{id}/options
func (h *WizardHandler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Options []struct {
			Code     string `json:"code" validate:"required"`
			Quantity int    `json:"quantity" validate:"min=0"`
		} `json:"options" validate:"required,dive"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	selections := make([]domain.SelectedOption, len(req.Options))
	for i, opt := range req.Options {
		selections[i] = domain.SelectedOption{Code: opt.Code, Quantity: opt.Quantity}
	}

	if err := store.UpdateSelectedOptions(selections); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.respondSession(w, http.StatusOK, store)
}

// ==============================================================================
// BILLING
// ==============================================================================

// SelectBillingSource switches who the invoice is issued to.
// PATCH /wizard/sessions/{id}/billing/source
func (h *WizardHandler) SelectBillingSource(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		Source string `json:"source" validate:"required,oneof=self other_person company"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	if err := store.SelectBillingSource(domain.BillingSource(req.Source)); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid billing source")
		return
	}
	h.respondSession(w, http.StatusOK, store)
}

// UpdateBillingFields merges manually entered billing fields.
// PATCH /wizard/sessions/{id}/billing/fields
func (h *WizardHandler) UpdateBillingFields(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		PersonFirstName  string          `json:"person_first_name,omitempty"`
		PersonLastName   string          `json:"person_last_name,omitempty"`
		PersonNationalID string          `json:"person_national_id,omitempty" validate:"omitempty,cnp"`
		Address          *domain.Address `json:"address,omitempty"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	store.UpdateBillingFields(domain.BillingState{
		PersonFirstName:  validator.Sanitize(req.PersonFirstName),
		PersonLastName:   validator.Sanitize(req.PersonLastName),
		PersonNationalID: validator.Sanitize(req.PersonNationalID),
		Address:          req.Address,
	})
	h.respondSession(w, http.StatusOK, store)
}

// VerifyCUI runs the explicit company tax-id verification.
// POST /wizard/sessions/{id}/billing/verify-cui
func (h *WizardHandler) VerifyCUI(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	var req struct {
		TaxID string `json:"tax_id" validate:"required,cui"`
	}
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	if err := store.VerifyCompanyTaxID(r.Context(), req.TaxID); err != nil {
		// The lookup error message is display-ready; verification failures
		// are a normal outcome, not a server fault.
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"verified": false,
			"error":    err.Error(),
		})
		return
	}

	h.respondSession(w, http.StatusOK, store)
}

// ==============================================================================
// DOCUMENT CAPTURE
// ==============================================================================

// CaptureDocument accepts a multipart image for a logical document slot and
// runs it through the intake pipeline.
// POST /wizard/sessions/{id}/documents
func (h *WizardHandler) CaptureDocument(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.intake.MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(h.intake.MaxImageBytes); err != nil {
		h.respondError(w, http.StatusRequestEntityTooLarge, "Image exceeds the accepted size")
		return
	}

	slotType := r.FormValue("slot_type")
	if slotType == "" {
		h.respondError(w, http.StatusBadRequest, "slot_type is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, h.intake.MaxImageBytes+1))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	if int64(len(imageBytes)) > h.intake.MaxImageBytes {
		h.respondError(w, http.StatusRequestEntityTooLarge, "Image exceeds the accepted size")
		return
	}

	req := intake.CaptureRequest{
		SlotType:   domain.SlotType(slotType),
		FileName:   header.Filename,
		ImageBytes: imageBytes,
		MimeType:   header.Header.Get("Content-Type"),
	}

	// The selfie slot may carry the id-photo reference for face comparison.
	if refFile, _, refErr := r.FormFile("reference"); refErr == nil {
		defer refFile.Close()
		refBytes, readErr := io.ReadAll(io.LimitReader(refFile, h.intake.MaxImageBytes+1))
		if readErr != nil || int64(len(refBytes)) > h.intake.MaxImageBytes {
			h.respondError(w, http.StatusBadRequest, "Failed to read reference image")
			return
		}
		req.ReferenceImageBytes = refBytes
	}

	if err := store.CaptureDocument(r.Context(), req); err != nil {
		h.respondCaptureError(w, err)
		return
	}

	h.respondSession(w, http.StatusOK, store)
}

func (h *WizardHandler) respondCaptureError(w http.ResponseWriter, err error) {
	var lowConfidence *intake.LowConfidenceError
	switch {
	case govdocerrors.As(err, &lowConfidence):
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "Document could not be read reliably, please retake the photo",
			"confidence": lowConfidence.Confidence,
			"issues":     lowConfidence.Issues,
		})
	case govdocerrors.Is(err, govdocerrors.ErrCaptureInFlight):
		h.respondError(w, http.StatusConflict, "A capture for this slot is already in progress")
	case govdocerrors.Is(err, govdocerrors.ErrInvalidCapture):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case govdocerrors.Is(err, govdocerrors.ErrExtractionFailed):
		h.respondError(w, http.StatusBadGateway, "Document processing is temporarily unavailable")
	default:
		h.logger.Error("Document capture failed", map[string]interface{}{
			"error": err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Document capture failed")
	}
}

// ==============================================================================
// PERSISTENCE & SUBMISSION
// ==============================================================================

// SaveNow persists the draft immediately.
// POST /wizard/sessions/{id}/save
func (h *WizardHandler) SaveNow(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.getStore(w, r)
	if !ok {
		return
	}
	store.SaveNow()
	h.respondSession(w, http.StatusOK, store)
}

// Submit finalizes the draft and initiates payment.
// POST /wizard/sessions/{id}/submit
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	store, userID, ok := h.getStore(w, r)
	if !ok {
		return
	}

	redirect, err := store.Submit(r.Context(), h.payments)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}

	session := store.Session()
	h.manager.Release(session.ID)

	h.logger.Info("Wizard session submitted", map[string]interface{}{
		"event":             "wizard_session_submitted",
		"user_id":           userID.String(),
		"session_id":        session.ID.String(),
		"friendly_order_id": session.FriendlyOrderID,
	})

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":          session.OrderID,
		"friendly_order_id": session.FriendlyOrderID,
		"redirect_url":      redirect,
	})
}

func (h *WizardHandler) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case govdocerrors.Is(err, govdocerrors.ErrSessionSubmitted):
		h.respondError(w, http.StatusConflict, "Order was already submitted")
	case govdocerrors.Is(err, govdocerrors.ErrCUINotVerified):
		h.respondError(w, http.StatusUnprocessableEntity, "Company tax id must be verified before submission")
	case govdocerrors.Is(err, govdocerrors.ErrInvalidNationalID):
		h.respondError(w, http.StatusUnprocessableEntity, "Billing national id is not valid")
	case govdocerrors.Is(err, govdocerrors.ErrInvalidBillingSource):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case govdocerrors.Is(err, govdocerrors.ErrPaymentRejected):
		h.respondError(w, http.StatusBadGateway, "Payment could not be initiated, the order remains resumable")
	default:
		h.logger.Error("Order submission failed", map[string]interface{}{
			"error": err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Order submission failed")
	}
}
