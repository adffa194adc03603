package limits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
)

type stubLimitsRepo struct {
	override *models.WithdrawalLimit
	// usage per window anchor, keyed by the span rounded to hours
	dailyUsed   int64
	weeklyUsed  int64
	monthlyUsed int64
}

func (s *stubLimitsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubLimitsRepo) FindOverride(ctx context.Context, payeeID uuid.UUID) (*models.WithdrawalLimit, error) {
	if s.override == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.override, nil
}

func (s *stubLimitsRepo) SumUsageSince(ctx context.Context, payeeID uuid.UUID, since time.Time) (int64, error) {
	age := time.Since(since)
	switch {
	case age <= dailySpan+time.Minute:
		return s.dailyUsed, nil
	case age <= weeklySpan+time.Minute:
		return s.weeklyUsed, nil
	default:
		return s.monthlyUsed, nil
	}
}

type stubRiskProvider struct {
	level enums.RiskLevel
	err   error
}

func (s *stubRiskProvider) GetRiskLevel(ctx context.Context, payeeID uuid.UUID) (enums.RiskLevel, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.level, nil
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		DailyLimitCents:   100000,
		WeeklyLimitCents:  500000,
		MonthlyLimitCents: 2000000,
	}
}

func newTestService(t *testing.T, repo *stubLimitsRepo, risk enums.RiskLevel) Service {
	t.Helper()
	svc, err := NewService(repo, &stubRiskProvider{level: risk}, testSettlementConfig())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCheckAdmitsWithinAllWindows(t *testing.T) {
	repo := &stubLimitsRepo{dailyUsed: 20000, weeklyUsed: 90000, monthlyUsed: 400000}
	svc := newTestService(t, repo, enums.RiskLevelLow)

	if err := svc.CheckInTx(context.Background(), nil, uuid.New(), 50000); err != nil {
		t.Fatalf("check should admit: %v", err)
	}
}

func TestCheckRejectsDailyWindowWithRemaining(t *testing.T) {
	// daily cap 100000, 95000 already used: a 10000 request must fail with
	// 5000 remaining even though weekly and monthly have headroom.
	repo := &stubLimitsRepo{dailyUsed: 95000, weeklyUsed: 95000, monthlyUsed: 95000}
	svc := newTestService(t, repo, enums.RiskLevelLow)

	err := svc.CheckInTx(context.Background(), nil, uuid.New(), 10000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLimitExceeded {
		t.Fatalf("expected limit exceeded, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["window"] != enums.LimitWindowDaily {
		t.Fatalf("window: want daily, got %v", details["window"])
	}
	if details["remaining_cents"] != int64(5000) {
		t.Fatalf("remaining: want 5000, got %v", details["remaining_cents"])
	}
}

func TestCheckRejectsWeeklyWhenDailyFits(t *testing.T) {
	repo := &stubLimitsRepo{dailyUsed: 0, weeklyUsed: 495000, monthlyUsed: 495000}
	svc := newTestService(t, repo, enums.RiskLevelLow)

	err := svc.CheckInTx(context.Background(), nil, uuid.New(), 10000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLimitExceeded {
		t.Fatalf("expected limit exceeded, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["window"] != enums.LimitWindowWeekly {
		t.Fatalf("window: want weekly, got %v", details["window"])
	}
}

func TestRiskLevelTightensCaps(t *testing.T) {
	// high risk quarters the daily cap to 25000
	repo := &stubLimitsRepo{}
	svc := newTestService(t, repo, enums.RiskLevelHigh)

	if err := svc.CheckInTx(context.Background(), nil, uuid.New(), 25000); err != nil {
		t.Fatalf("request at the tightened cap should pass: %v", err)
	}
	err := svc.CheckInTx(context.Background(), nil, uuid.New(), 25001)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLimitExceeded {
		t.Fatalf("expected limit exceeded above tightened cap, got %v", err)
	}
}

func TestOverrideReplacesDefaults(t *testing.T) {
	repo := &stubLimitsRepo{
		override: &models.WithdrawalLimit{
			PayeeID:           uuid.New(),
			DailyLimitCents:   10000,
			WeeklyLimitCents:  50000,
			MonthlyLimitCents: 200000,
		},
	}
	svc := newTestService(t, repo, enums.RiskLevelLow)

	err := svc.CheckInTx(context.Background(), nil, uuid.New(), 15000)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLimitExceeded {
		t.Fatalf("expected limit exceeded against override, got %v", err)
	}
}

func TestStatusReportsAllWindows(t *testing.T) {
	repo := &stubLimitsRepo{dailyUsed: 40000, weeklyUsed: 100000, monthlyUsed: 300000}
	svc := newTestService(t, repo, enums.RiskLevelMedium)

	status, err := svc.Status(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.RiskLevel != enums.RiskLevelMedium {
		t.Fatalf("risk: want medium, got %s", status.RiskLevel)
	}
	if len(status.Windows) != 3 {
		t.Fatalf("want 3 windows, got %d", len(status.Windows))
	}
	// medium risk halves the daily cap: 50000 limit, 40000 used
	daily := status.Windows[0]
	if daily.Window != enums.LimitWindowDaily || daily.LimitCents != 50000 || daily.RemainingCents != 10000 {
		t.Fatalf("unexpected daily window: %+v", daily)
	}
}
