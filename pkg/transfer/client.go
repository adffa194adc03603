// Package transfer abstracts the external payment gateway behind an initiate
// capability. The gateway is idempotent per payout id: retried calls with the
// same id never double-transfer.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/pkg/config"
)

// Request describes a single transfer to a verified destination.
type Request struct {
	PayoutID      uuid.UUID `json:"payout_id"`
	PayeeID       uuid.UUID `json:"payee_id"`
	DestinationID uuid.UUID `json:"destination_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
}

// Outcome is the gateway's explicit verdict. A declined transfer is a normal
// outcome, not a transport error.
type Outcome struct {
	Accepted      bool   `json:"accepted"`
	Reference     string `json:"reference,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Gateway is the initiate-transfer capability the payout processor depends on.
type Gateway interface {
	Initiate(ctx context.Context, req Request) (Outcome, error)
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	http *resty.Client
}

// NewClient builds a transfer client from config.
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{http: http}, nil
}

// Initiate submits the transfer. The payout id doubles as the idempotency key.
func (c *Client) Initiate(ctx context.Context, req Request) (Outcome, error) {
	if req.PayoutID == uuid.Nil {
		return Outcome{}, fmt.Errorf("payout id is required")
	}
	if req.AmountCents <= 0 {
		return Outcome{}, fmt.Errorf("transfer amount must be positive")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.PayoutID.String()).
		SetBody(req).
		Post("/v1/transfers")
	if err != nil {
		return Outcome{}, fmt.Errorf("initiate transfer: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusUnprocessableEntity:
		var outcome Outcome
		if err := json.Unmarshal(resp.Body(), &outcome); err != nil {
			return Outcome{}, fmt.Errorf("decode transfer outcome: %w", err)
		}
		return outcome, nil
	default:
		return Outcome{}, fmt.Errorf("transfer request status: %d", resp.StatusCode())
	}
}
