// Package registry is the HTTP client for the external company-registry
// lookup collaborator.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"govdoc/pkg/config"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"
)

// Company is the registry's view of a legal person.
type Company struct {
	LegalName      string         `json:"legalName"`
	RegistrationID string         `json:"registrationId"`
	Address        domain.Address `json:"address"`
}

// LookupError carries the registry's display-ready message.
type LookupError struct {
	Message string
}

func (e *LookupError) Error() string {
	if e.Message == "" {
		return "company registry lookup failed"
	}
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return govdocerrors.ErrExternalLookupFailed
}

// Lookup is the consumer-side contract used by the billing resolver.
type Lookup interface {
	FindByTaxID(ctx context.Context, taxID string) (*Company, error)
}

// Client calls the company registry over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.RegistryConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// FindByTaxID resolves a company by its tax identifier. Any failure — network,
// status, or a registry-reported error — comes back as a LookupError whose
// message is suitable for direct display.
func (c *Client) FindByTaxID(ctx context.Context, taxID string) (*Company, error) {
	body, err := json.Marshal(map[string]string{"taxId": taxID})
	if err != nil {
		return nil, govdocerrors.Wrap(err, "failed to encode registry request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/companies/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, govdocerrors.Wrap(err, "failed to build registry request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("company registry unreachable", map[string]interface{}{
			"tax_id": taxID,
			"error":  err.Error(),
		})
		return nil, &LookupError{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, &LookupError{Message: errBody.Error}
	}

	var company Company
	if err := json.NewDecoder(resp.Body).Decode(&company); err != nil {
		return nil, &LookupError{}
	}

	return &company, nil
}
