// Package intake accepts captured document images, runs them through the
// external extraction service, and applies the confidence and field-merge
// policies before the results reach the identity sub-state.
package intake

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"govdoc/internal/extraction"
	"govdoc/pkg/config"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
)

// ConfidenceThreshold is the minimum accepted extraction confidence. A policy
// constant for now; kept exported so a per-module option can shadow it later.
const ConfidenceThreshold = 50

// LowConfidenceError reports a rejected extraction together with the
// confidence the service returned and any issue strings, so the caller can
// surface them and offer a retry.
type LowConfidenceError struct {
	Confidence int
	Issues     []string
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("extraction confidence %d below threshold %d", e.Confidence, ConfidenceThreshold)
}

func (e *LowConfidenceError) Unwrap() error {
	return govdocerrors.ErrLowConfidenceExtraction
}

// CaptureRequest describes one capture for a logical document slot.
type CaptureRequest struct {
	SlotType   domain.SlotType
	FileName   string
	ImageBytes []byte
	MimeType   string
	// ReferenceImageBytes is set only for selfie-vs-ID face-match captures.
	ReferenceImageBytes []byte
}

// CaptureOutcome is everything an accepted capture produced. The caller
// applies it to the identity sub-state with MergeOutcome, so no session lock
// is held during the extraction round-trip.
type CaptureOutcome struct {
	CanonicalSlot domain.SlotType
	Document      domain.UploadedDocument
	Extraction    *domain.ExtractionResult
	Fields        map[string]string
	Address       *domain.Address
	Expired       bool
	NeedsAddrCert bool
}

// Pipeline validates captures and invokes the extraction collaborator.
type Pipeline struct {
	extractor extraction.Extractor
	cfg       config.IntakeConfig
	logger    logger.Logger
}

func NewPipeline(extractor extraction.Extractor, cfg config.IntakeConfig, log logger.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		cfg:       cfg,
		logger:    log,
	}
}

// Capture runs one capture through validation and extraction and returns the
// outcome to merge. Selfie captures skip extraction entirely.
func (p *Pipeline) Capture(ctx context.Context, req CaptureRequest) (*CaptureOutcome, error) {
	if err := p.validateCapture(req); err != nil {
		return nil, err
	}

	doc := domain.UploadedDocument{
		ID:          uuid.New(),
		SlotType:    req.SlotType,
		FileName:    req.FileName,
		ContentType: req.MimeType,
		SizeBytes:   int64(len(req.ImageBytes)),
		RawImageRef: fmt.Sprintf("captures/%s/%s", req.SlotType, uuid.New().String()),
		CapturedAt:  time.Now(),
	}

	// Selfies are stored as-is; there is nothing to extract.
	if req.SlotType == domain.SlotSelfie {
		return &CaptureOutcome{
			CanonicalSlot: domain.SlotSelfie,
			Document:      doc,
		}, nil
	}

	extReq := extraction.Request{
		Mode:        extraction.ModeTargeted,
		SlotType:    req.SlotType,
		ImageBase64: base64.StdEncoding.EncodeToString(req.ImageBytes),
		MimeType:    req.MimeType,
	}
	if len(req.ReferenceImageBytes) > 0 {
		extReq.ReferenceImageBase64 = base64.StdEncoding.EncodeToString(req.ReferenceImageBytes)
	}

	resp, err := p.extractor.Extract(ctx, extReq)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.Confidence < ConfidenceThreshold {
		p.logger.Warn("extraction rejected by confidence policy", map[string]interface{}{
			"event":      "extraction_rejected",
			"slot_type":  string(req.SlotType),
			"success":    resp.Success,
			"confidence": resp.Confidence,
			"issues":     resp.Issues,
		})
		return nil, &LowConfidenceError{Confidence: resp.Confidence, Issues: resp.Issues}
	}

	canonical := CanonicalSlot(req.SlotType, resp.DocumentType)
	doc.SlotType = canonical

	outcome := &CaptureOutcome{
		CanonicalSlot: canonical,
		Document:      doc,
		Extraction: &domain.ExtractionResult{
			SlotType:    canonical,
			Success:     true,
			Confidence:  resp.Confidence,
			Fields:      resp.ExtractedFields,
			Issues:      resp.Issues,
			ProcessedAt: time.Now(),
		},
		Fields:        resp.ExtractedFields,
		Expired:       resp.IsExpired,
		NeedsAddrCert: resp.RequiresAddressCertificate,
	}
	outcome.Address = addressFromFields(resp.ExtractedFields)

	return outcome, nil
}

func (p *Pipeline) validateCapture(req CaptureRequest) error {
	if len(req.ImageBytes) == 0 {
		return govdocerrors.Wrap(govdocerrors.ErrInvalidCapture, "empty image")
	}
	if p.cfg.MaxImageBytes > 0 && int64(len(req.ImageBytes)) > p.cfg.MaxImageBytes {
		return govdocerrors.Wrap(govdocerrors.ErrInvalidCapture, "image exceeds size limit")
	}
	for _, accepted := range p.cfg.AcceptedMimeTypes {
		if req.MimeType == accepted {
			return nil
		}
	}
	return govdocerrors.Wrap(govdocerrors.ErrInvalidCapture, "mime type not accepted: "+req.MimeType)
}

// addressFromFields assembles the raw (un-normalized) address carried by an
// extraction, if any address sub-field is present.
func addressFromFields(fields map[string]string) *domain.Address {
	if fields == nil {
		return nil
	}
	street := fields[domain.FieldAddrStreet]
	if streetType := fields[domain.FieldAddrStreetType]; streetType != "" && street != "" {
		// The street-type qualifier is concatenated during normalization;
		// keep both raw parts here.
		street = streetType + " " + street
	}
	addr := domain.Address{
		County:     fields[domain.FieldAddrCounty],
		City:       fields[domain.FieldAddrCity],
		Street:     street,
		Number:     fields[domain.FieldAddrNumber],
		Building:   fields[domain.FieldAddrBuilding],
		Staircase:  fields[domain.FieldAddrStaircase],
		Floor:      fields[domain.FieldAddrFloor],
		Apartment:  fields[domain.FieldAddrApartment],
		PostalCode: fields[domain.FieldAddrPostalCode],
	}
	if addr.County == "" && addr.City == "" && addr.Street == "" {
		return nil
	}
	return &addr
}

// MergeOutcome applies an accepted capture to the identity sub-state:
// exactly one UploadedDocument and one ExtractionResult per canonical slot
// (replace, not append), then the field-merge policy. A field the user
// hand-edited is only overwritten when the same canonical slot is re-scanned.
func MergeOutcome(identity *domain.PersonalIdentity, outcome *CaptureOutcome) {
	rescan := replaceDocument(identity, outcome.Document)
	if outcome.Extraction != nil {
		replaceExtraction(identity, *outcome.Extraction)
	}

	if len(outcome.Fields) > 0 {
		mergeFields(identity, outcome.Fields, rescan)
	}
	switch outcome.CanonicalSlot {
	case domain.SlotIDFront, domain.SlotIDBack:
		identity.DocumentType = "identity_card"
	case domain.SlotOldFormatID:
		identity.DocumentType = "identity_card_old_format"
	case domain.SlotPassport:
		identity.DocumentType = "passport"
	case domain.SlotResidencePermit:
		identity.DocumentType = "residence_permit"
	}
	if outcome.Expired {
		identity.DocumentExpired = true
	}
	if outcome.NeedsAddrCert {
		identity.AddressCertificateNeeded = true
	}
}

func replaceDocument(identity *domain.PersonalIdentity, doc domain.UploadedDocument) (rescan bool) {
	for i, existing := range identity.Documents {
		if existing.SlotType == doc.SlotType {
			identity.Documents[i] = doc
			return true
		}
	}
	identity.Documents = append(identity.Documents, doc)
	return false
}

func replaceExtraction(identity *domain.PersonalIdentity, result domain.ExtractionResult) {
	for i, existing := range identity.Extractions {
		if existing.SlotType == result.SlotType {
			identity.Extractions[i] = result
			return
		}
	}
	identity.Extractions = append(identity.Extractions, result)
}

func mergeFields(identity *domain.PersonalIdentity, fields map[string]string, rescan bool) {
	set := func(key string, dst *string) {
		val, ok := fields[key]
		if !ok || val == "" {
			return
		}
		if *dst != "" && identity.ManualFields[key] && !rescan {
			return
		}
		*dst = val
	}

	set(domain.FieldNationalID, &identity.NationalID)
	set(domain.FieldFirstName, &identity.FirstName)
	set(domain.FieldLastName, &identity.LastName)
	set(domain.FieldBirthDate, &identity.BirthDate)
	set(domain.FieldBirthPlace, &identity.BirthPlace)
	set(domain.FieldMotherName, &identity.MotherName)
	set(domain.FieldFatherName, &identity.FatherName)
	set(domain.FieldDocumentSeries, &identity.DocumentSeries)
	set(domain.FieldDocumentNumber, &identity.DocumentNumber)
	set(domain.FieldIssuedBy, &identity.IssuedBy)
	set(domain.FieldIssueDate, &identity.IssueDate)
	set(domain.FieldExpiryDate, &identity.ExpiryDate)
}
