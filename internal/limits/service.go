package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/tiers"
)

// Window anchors, rolling from "now".
const (
	dailySpan   = 24 * time.Hour
	weeklySpan  = 7 * 24 * time.Hour
	monthlySpan = 30 * 24 * time.Hour
)

// Risk tightening multiplies caps down; low risk leaves them untouched.
var riskMultiplier = map[enums.RiskLevel]decimal.Decimal{
	enums.RiskLevelLow:    decimal.NewFromInt(1),
	enums.RiskLevelMedium: decimal.RequireFromString("0.5"),
	enums.RiskLevelHigh:   decimal.RequireFromString("0.25"),
}

// WindowStatus reports one rolling window's cap and consumption.
type WindowStatus struct {
	Window         enums.LimitWindow `json:"window"`
	LimitCents     int64             `json:"limit_cents"`
	UsedCents      int64             `json:"used_cents"`
	RemainingCents int64             `json:"remaining_cents"`
}

// Status is the full limit picture for a payee at one instant.
type Status struct {
	PayeeID   uuid.UUID       `json:"payee_id"`
	RiskLevel enums.RiskLevel `json:"risk_level"`
	Windows   []WindowStatus  `json:"windows"`
}

// Service admits or rejects withdrawal amounts against rolling caps.
type Service interface {
	// CheckInTx verifies amountCents fits inside every window, reading usage
	// through the caller's transaction. Rejections carry the tightest window.
	CheckInTx(ctx context.Context, tx *gorm.DB, payeeID uuid.UUID, amountCents int64) error
	Status(ctx context.Context, payeeID uuid.UUID) (*Status, error)
}

type service struct {
	repo Repository
	risk tiers.RiskProvider
	cfg  config.SettlementConfig
}

// NewService builds a withdrawal limiter with the required dependencies.
func NewService(repo Repository, risk tiers.RiskProvider, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("limits repository required")
	}
	if risk == nil {
		return nil, fmt.Errorf("risk provider required")
	}
	return &service{repo: repo, risk: risk, cfg: cfg}, nil
}

type effectiveCaps struct {
	daily   int64
	weekly  int64
	monthly int64
	risk    enums.RiskLevel
}

func (s *service) capsFor(ctx context.Context, repo Repository, payeeID uuid.UUID) (effectiveCaps, error) {
	caps := effectiveCaps{
		daily:   s.cfg.DailyLimitCents,
		weekly:  s.cfg.WeeklyLimitCents,
		monthly: s.cfg.MonthlyLimitCents,
	}

	override, err := repo.FindOverride(ctx, payeeID)
	if err == nil {
		caps.daily = override.DailyLimitCents
		caps.weekly = override.WeeklyLimitCents
		caps.monthly = override.MonthlyLimitCents
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return caps, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load limit override")
	}

	risk, err := s.risk.GetRiskLevel(ctx, payeeID)
	if err != nil {
		return caps, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve risk level")
	}
	caps.risk = risk

	multiplier, ok := riskMultiplier[risk]
	if !ok {
		return caps, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no multiplier for risk level %q", risk))
	}
	caps.daily = tighten(caps.daily, multiplier)
	caps.weekly = tighten(caps.weekly, multiplier)
	caps.monthly = tighten(caps.monthly, multiplier)
	return caps, nil
}

func tighten(limitCents int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(limitCents).Mul(multiplier).Round(0).IntPart()
}

func (s *service) CheckInTx(ctx context.Context, tx *gorm.DB, payeeID uuid.UUID, amountCents int64) error {
	if payeeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	caps, err := s.capsFor(ctx, repo, payeeID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	checks := []struct {
		window enums.LimitWindow
		limit  int64
		span   time.Duration
	}{
		{enums.LimitWindowDaily, caps.daily, dailySpan},
		{enums.LimitWindowWeekly, caps.weekly, weeklySpan},
		{enums.LimitWindowMonthly, caps.monthly, monthlySpan},
	}
	for _, check := range checks {
		used, err := repo.SumUsageSince(ctx, payeeID, now.Add(-check.span))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum window usage")
		}
		remaining := check.limit - used
		if remaining < 0 {
			remaining = 0
		}
		if amountCents > remaining {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded,
				fmt.Sprintf("%s withdrawal limit exceeded", check.window)).
				WithDetails(map[string]any{
					"window":          check.window,
					"limit_cents":     check.limit,
					"used_cents":      used,
					"remaining_cents": remaining,
				})
		}
	}
	return nil
}

func (s *service) Status(ctx context.Context, payeeID uuid.UUID) (*Status, error) {
	if payeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}

	caps, err := s.capsFor(ctx, s.repo, payeeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	windows := []struct {
		window enums.LimitWindow
		limit  int64
		span   time.Duration
	}{
		{enums.LimitWindowDaily, caps.daily, dailySpan},
		{enums.LimitWindowWeekly, caps.weekly, weeklySpan},
		{enums.LimitWindowMonthly, caps.monthly, monthlySpan},
	}

	status := &Status{PayeeID: payeeID, RiskLevel: caps.risk}
	for _, w := range windows {
		used, err := s.repo.SumUsageSince(ctx, payeeID, now.Add(-w.span))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum window usage")
		}
		remaining := w.limit - used
		if remaining < 0 {
			remaining = 0
		}
		status.Windows = append(status.Windows, WindowStatus{
			Window:         w.window,
			LimitCents:     w.limit,
			UsedCents:      used,
			RemainingCents: remaining,
		})
	}
	return status, nil
}
