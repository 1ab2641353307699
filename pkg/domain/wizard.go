// Package domain defines the core business entities for the govdoc ordering system.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==============================================================================
// ENUMS & STATUS TYPES
// ==============================================================================

// ModuleKey identifies an optional verification capability toggled per service.
type ModuleKey string

const (
	ModuleClientType       ModuleKey = "client_type"
	ModulePersonalIdentity ModuleKey = "personal_identity"
	ModuleCompanyIdentity  ModuleKey = "company_identity"
	ModuleProperty         ModuleKey = "property"
	ModuleVehicle          ModuleKey = "vehicle"
	ModuleSignature        ModuleKey = "signature"
)

// ClientType distinguishes natural persons from legal persons in the wizard.
type ClientType string

const (
	ClientTypeNaturalPerson ClientType = "natural_person"
	ClientTypeLegalPerson   ClientType = "legal_person"
)

// StepID identifies a wizard step.
type StepID string

const (
	StepContact          StepID = "contact"
	StepClientType       StepID = "client_type"
	StepPersonalIdentity StepID = "personal_identity"
	StepCompanyData      StepID = "company_data"
	StepProperty         StepID = "property"
	StepVehicle          StepID = "vehicle"
	StepSignature        StepID = "signature"
	StepOptions          StepID = "options"
	StepDelivery         StepID = "delivery"
	StepReview           StepID = "review"
)

// SlotType is a logical document role in the wizard, distinct from the
// extraction service's own document classification.
type SlotType string

const (
	SlotIDFront            SlotType = "id_front"
	SlotIDBack             SlotType = "id_back"
	SlotOldFormatID        SlotType = "old_format_id"
	SlotPassport           SlotType = "passport"
	SlotResidencePermit    SlotType = "residence_permit"
	SlotAddressCertificate SlotType = "address_certificate"
	SlotSelfie             SlotType = "selfie"
)

// BillingSource identifies which identity backs the order invoice.
type BillingSource string

const (
	BillingSourceSelf        BillingSource = "self"
	BillingSourceOtherPerson BillingSource = "other_person"
	BillingSourceCompany     BillingSource = "company"
)

// DeliveryMethod represents how the finished document reaches the client.
type DeliveryMethod string

const (
	DeliveryMethodCourier    DeliveryMethod = "courier"
	DeliveryMethodPickup     DeliveryMethod = "pickup"
	DeliveryMethodElectronic DeliveryMethod = "electronic"
)

// DraftStatus represents the lifecycle of a wizard session draft.
type DraftStatus string

const (
	DraftStatusActive    DraftStatus = "active"
	DraftStatusSubmitted DraftStatus = "submitted"
	DraftStatusAbandoned DraftStatus = "abandoned"
)

// ==============================================================================
// WIZARD STEPS
// ==============================================================================

// StepDescriptor describes one step in the ordering wizard. The possible step
// set is a superset; the visible set is a filtered, ordered projection driven
// by the verification configuration and already-entered data.
type StepDescriptor struct {
	ID        StepID    `json:"id"`
	Order     int       `json:"order"`
	Label     string    `json:"label"`
	ModuleKey ModuleKey `json:"module_key,omitempty"`
}

// ==============================================================================
// IDENTITY & DOCUMENTS
// ==============================================================================

// Address is the normalized, reusable address value object. Sub-fields that
// are absent on an update are never cleared.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Label      string    `json:"label,omitempty" db:"label"`
	Country    string    `json:"country" db:"country"`
	County     string    `json:"county" db:"county"`
	City       string    `json:"city" db:"city"`
	Street     string    `json:"street" db:"street"`
	Number     string    `json:"number" db:"street_number"`
	Building   string    `json:"building,omitempty" db:"building"`
	Staircase  string    `json:"staircase,omitempty" db:"staircase"`
	Floor      string    `json:"floor,omitempty" db:"floor"`
	Apartment  string    `json:"apartment,omitempty" db:"apartment"`
	PostalCode string    `json:"postal_code,omitempty" db:"postal_code"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
}

// UploadedDocument records a captured image for a logical document slot.
// At most one exists per canonical slot; later captures replace it.
type UploadedDocument struct {
	ID          uuid.UUID `json:"id"`
	SlotType    SlotType  `json:"slot_type"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	RawImageRef string    `json:"raw_image_ref"`
	CapturedAt  time.Time `json:"captured_at"`
}

// ExtractionResult records the outcome of one extraction call for a canonical
// slot. At most one exists per canonical slot.
type ExtractionResult struct {
	SlotType    SlotType          `json:"slot_type"`
	Success     bool              `json:"success"`
	Confidence  int               `json:"confidence"`
	Fields      map[string]string `json:"fields,omitempty"`
	Issues      []string          `json:"issues,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// PersonalIdentity is the identity sub-state of a wizard session.
type PersonalIdentity struct {
	NationalID     string `json:"national_id,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	BirthPlace     string `json:"birth_place,omitempty"`
	MotherName     string `json:"mother_name,omitempty"`
	FatherName     string `json:"father_name,omitempty"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentSeries string `json:"document_series,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	IssuedBy       string `json:"issued_by,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`

	DocumentExpired          bool `json:"document_expired"`
	AddressCertificateNeeded bool `json:"address_certificate_needed"`

	Address *Address `json:"address,omitempty"`

	Documents   []UploadedDocument `json:"documents,omitempty"`
	Extractions []ExtractionResult `json:"extractions,omitempty"`

	// ManualFields tracks which canonical fields the user hand-edited, so a
	// later extraction does not blindly overwrite them.
	ManualFields map[string]bool `json:"manual_fields,omitempty"`
}

// CompanyIdentity is the company sub-state collected when the client type
// resolves to a legal person.
type CompanyIdentity struct {
	LegalName      string   `json:"legal_name,omitempty"`
	RegistrationID string   `json:"registration_id,omitempty"`
	TaxID          string   `json:"tax_id,omitempty"`
	BankName       string   `json:"bank_name,omitempty"`
	IBAN           string   `json:"iban,omitempty"`
	Address        *Address `json:"address,omitempty"`
}

// BillingProfile is the reusable billing record derived from scans or manual
// entry. Exactly one of the natural-person or company field groups is set.
type BillingProfile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	IsCompany bool      `json:"is_company" db:"is_company"`

	FirstName  string `json:"first_name,omitempty" db:"first_name"`
	LastName   string `json:"last_name,omitempty" db:"last_name"`
	NationalID string `json:"national_id,omitempty" db:"national_id"`

	CompanyName    string `json:"company_name,omitempty" db:"company_name"`
	RegistrationID string `json:"registration_id,omitempty" db:"registration_id"`
	TaxID          string `json:"tax_id,omitempty" db:"tax_id"`
	BankName       string `json:"bank_name,omitempty" db:"bank_name"`
	IBAN           string `json:"iban,omitempty" db:"iban"`

	Address   *Address `json:"address,omitempty"`
	IsDefault bool     `json:"is_default" db:"is_default"`
}

// ==============================================================================
// BILLING SUB-STATE
// ==============================================================================

// BillingState holds the order's billing selection and the fields entered for
// the selected source. Switching sources clears the previous source's fields.
type BillingState struct {
	Source BillingSource `json:"source"`

	PersonFirstName  string `json:"person_first_name,omitempty"`
	PersonLastName   string `json:"person_last_name,omitempty"`
	PersonNationalID string `json:"person_national_id,omitempty"`

	CompanyName           string `json:"company_name,omitempty"`
	CompanyRegistrationID string `json:"company_registration_id,omitempty"`
	CompanyTaxID          string `json:"company_tax_id,omitempty"`
	CUIVerified           bool   `json:"cui_verified"`

	Address *Address `json:"address,omitempty"`
}

// ==============================================================================
// PRICING & OPTIONS
// ==============================================================================

// SelectedOption is a priced add-on chosen in the wizard.
type SelectedOption struct {
	Code     string          `json:"code"`
	Label    string          `json:"label,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// PriceBreakdown is always a pure derivation from the session's options and
// delivery sub-states, never independently mutated or persisted alone.
type PriceBreakdown struct {
	BasePrice      decimal.Decimal `json:"base_price"`
	OptionsPrice   decimal.Decimal `json:"options_price"`
	DeliveryPrice  decimal.Decimal `json:"delivery_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Currency       string          `json:"currency"`
}

// ==============================================================================
// WIZARD SESSION
// ==============================================================================

// Contact holds the order's contact details step.
type Contact struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Delivery holds the delivery preference step.
type Delivery struct {
	Method  DeliveryMethod  `json:"method,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Address *Address        `json:"address,omitempty"`
	Notes   string          `json:"notes,omitempty"`
}

// WizardSession is the mutable in-progress order draft. One session is active
// per client context; it is created on first entry to a service's ordering
// flow and reset when the user explicitly starts a new order.
type WizardSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ServiceID string    `json:"service_id"`

	CurrentStepID StepID `json:"current_step_id"`
	StepNumber    int    `json:"step_number"`

	ClientType       ClientType        `json:"client_type,omitempty"`
	Contact          Contact           `json:"contact"`
	PersonalIdentity *PersonalIdentity `json:"personal_identity,omitempty"`
	CompanyIdentity  *CompanyIdentity  `json:"company_identity,omitempty"`
	Billing          *BillingState     `json:"billing,omitempty"`
	Delivery         Delivery          `json:"delivery"`
	SelectedOptions  []SelectedOption  `json:"selected_options,omitempty"`

	BasePrice      decimal.Decimal `json:"base_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Currency       string          `json:"currency"`
	Price          PriceBreakdown  `json:"price"`

	Status          DraftStatus `json:"status"`
	IsSaving        bool        `json:"is_saving"`
	LastSavedAt     *time.Time  `json:"last_saved_at,omitempty"`
	SaveError       string      `json:"save_error,omitempty"`
	OrderID         *uuid.UUID  `json:"order_id,omitempty"`
	FriendlyOrderID string      `json:"friendly_order_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Canonical identity field keys, shared by the extraction contract, the field
// merge policy, and manual-edit tracking.
const (
	FieldNationalID     = "national_id"
	FieldFirstName      = "first_name"
	FieldLastName       = "last_name"
	FieldBirthDate      = "birth_date"
	FieldBirthPlace     = "birth_place"
	FieldMotherName     = "mother_name"
	FieldFatherName     = "father_name"
	FieldDocumentSeries = "document_series"
	FieldDocumentNumber = "document_number"
	FieldIssuedBy       = "issued_by"
	FieldIssueDate      = "issue_date"
	FieldExpiryDate     = "expiry_date"

	FieldAddrCounty     = "address_county"
	FieldAddrCity       = "address_city"
	FieldAddrStreet     = "address_street"
	FieldAddrStreetType = "address_street_type"
	FieldAddrNumber     = "address_number"
	FieldAddrBuilding   = "address_building"
	FieldAddrStaircase  = "address_staircase"
	FieldAddrFloor      = "address_floor"
	FieldAddrApartment  = "address_apartment"
	FieldAddrPostalCode = "address_postal_code"
)

// Identity returns the personal identity sub-state, allocating it on first use.
func (s *WizardSession) Identity() *PersonalIdentity {
	if s.PersonalIdentity == nil {
		s.PersonalIdentity = &PersonalIdentity{}
	}
	return s.PersonalIdentity
}
