// Package payment is the thin client for the payment collaborator, invoked
// once at submission with the final total.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"govdoc/pkg/config"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Initiator is the consumer-side contract used at order submission.
type Initiator interface {
	Initiate(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, currency string) (string, error)
}

// Client calls the payment collaborator over HTTP.
type Client struct {
	baseURL    string
	returnURL  string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.PaymentConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		returnURL: cfg.ReturnURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Initiate registers the finalized total and returns the redirect handle.
func (c *Client) Initiate(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, currency string) (string, error) {
	payload := map[string]string{
		"orderId":   orderID.String(),
		"amount":    total.StringFixed(2),
		"currency":  currency,
		"returnUrl": c.returnURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", govdocerrors.Wrap(err, "failed to encode payment request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return "", govdocerrors.Wrap(err, "failed to build payment request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", govdocerrors.Wrap(err, "payment collaborator unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment collaborator returned status %d: %w", resp.StatusCode, govdocerrors.ErrPaymentRejected)
	}

	var result struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", govdocerrors.Wrap(err, "failed to decode payment response")
	}

	c.logger.Info("payment initiated", map[string]interface{}{
		"event":    "payment_initiated",
		"order_id": orderID.String(),
		"amount":   total.StringFixed(2),
		"currency": currency,
	})

	return result.RedirectURL, nil
}
