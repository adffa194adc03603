// Package tiers talks to the external profile/risk service that owns agent
// tier assignments. The settlement engine never computes tiers or risk levels
// itself; it only consults them.
package tiers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// RateProvider resolves the commission rate for a payee.
type RateProvider interface {
	GetCommissionRate(ctx context.Context, payeeID uuid.UUID) (decimal.Decimal, error)
}

// RiskProvider resolves the withdrawal risk level for a payee.
type RiskProvider interface {
	GetRiskLevel(ctx context.Context, payeeID uuid.UUID) (enums.RiskLevel, error)
}

type profileResponse struct {
	PayeeID   string `json:"payee_id"`
	Tier      string `json:"tier"`
	RiskLevel string `json:"risk_level"`
}

// Documented tier contract with the profile service.
var rateByTier = map[enums.AgentTier]decimal.Decimal{
	enums.AgentTierBronze:   decimal.RequireFromString("0.05"),
	enums.AgentTierSilver:   decimal.RequireFromString("0.07"),
	enums.AgentTierGold:     decimal.RequireFromString("0.10"),
	enums.AgentTierPlatinum: decimal.RequireFromString("0.12"),
}

// RateForTier exposes the tier→rate contract table.
func RateForTier(tier enums.AgentTier) (decimal.Decimal, error) {
	rate, ok := rateByTier[tier]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no commission rate for tier %q", tier)
	}
	return rate, nil
}

// Client is the HTTP client for the profile/risk service.
type Client struct {
	http *resty.Client
}

// NewClient builds a tiers client from config.
func NewClient(cfg config.TiersConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tiers base url is required")
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{http: http}, nil
}

func (c *Client) fetchProfile(ctx context.Context, payeeID uuid.UUID) (profileResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/v1/payees/" + payeeID.String() + "/profile")
	if err != nil {
		return profileResponse{}, fmt.Errorf("fetch payee profile: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return profileResponse{}, fmt.Errorf("payee profile request status: %d", resp.StatusCode())
	}
	var profile profileResponse
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return profileResponse{}, fmt.Errorf("decode payee profile: %w", err)
	}
	return profile, nil
}

// GetCommissionRate resolves the payee's persisted tier and maps it to a rate.
func (c *Client) GetCommissionRate(ctx context.Context, payeeID uuid.UUID) (decimal.Decimal, error) {
	profile, err := c.fetchProfile(ctx, payeeID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	tier, err := enums.ParseAgentTier(profile.Tier)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return RateForTier(tier)
}

// GetRiskLevel resolves the payee's current risk classification.
func (c *Client) GetRiskLevel(ctx context.Context, payeeID uuid.UUID) (enums.RiskLevel, error) {
	profile, err := c.fetchProfile(ctx, payeeID)
	if err != nil {
		return "", err
	}
	return enums.ParseRiskLevel(profile.RiskLevel)
}
