// Package extraction is the HTTP client for the external document extraction
// (OCR) collaborator.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"govdoc/pkg/config"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"
)

// Mode selects how the extraction service interprets the capture.
type Mode string

const (
	// ModeTargeted asks for the fields of a specific logical slot.
	ModeTargeted Mode = "targeted"
	// ModeSingle asks for a best-effort classification of a lone image.
	ModeSingle Mode = "single"
)

// Request is the wire request of the extraction collaborator.
type Request struct {
	Mode                 Mode            `json:"mode"`
	SlotType             domain.SlotType `json:"slotType"`
	ImageBase64          string          `json:"imageBase64"`
	MimeType             string          `json:"mimeType"`
	ReferenceImageBase64 string          `json:"referenceImageBase64,omitempty"`
}

// Response is the wire response of the extraction collaborator.
type Response struct {
	Success                    bool              `json:"success"`
	Confidence                 int               `json:"confidence"`
	DocumentType               string            `json:"documentType"`
	ExtractedFields            map[string]string `json:"extractedFields"`
	Issues                     []string          `json:"issues"`
	IsExpired                  bool              `json:"isExpired"`
	RequiresAddressCertificate bool              `json:"requiresAddressCertificate"`
}

// Extractor is the consumer-side contract; the intake pipeline depends on
// this, not on the HTTP client.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Response, error)
}

// Client calls the extraction collaborator over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.ExtractionConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Extract submits a capture for extraction. A transport failure, a non-200
// status, or an undecodable body are all treated the same way: a failed
// extraction. Timeouts are the collaborator's responsibility.
func (c *Client) Extract(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, govdocerrors.Wrap(err, "failed to encode extraction request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, govdocerrors.Wrap(err, "failed to build extraction request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, govdocerrors.Wrap(err, "extraction service unreachable")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d: %w", httpResp.StatusCode, govdocerrors.ErrExtractionFailed)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, govdocerrors.Wrap(err, "failed to decode extraction response")
	}

	c.logger.Info("extraction completed", map[string]interface{}{
		"event":         "extraction_completed",
		"slot_type":     string(req.SlotType),
		"mode":          string(req.Mode),
		"success":       resp.Success,
		"confidence":    resp.Confidence,
		"document_type": resp.DocumentType,
		"duration_ms":   time.Since(started).Milliseconds(),
	})

	return &resp, nil
}
