package commissions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
)

func setupCommissionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	commissions := `
CREATE TABLE IF NOT EXISTS commissions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  payee_id TEXT NOT NULL,
  order_amount_cents INTEGER NOT NULL,
  rate NUMERIC NOT NULL,
  gross_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  net_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payout_id TEXT,
  fulfilled_at DATETIME NOT NULL,
  approved_at DATETIME,
  paid_at DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(commissions).Error)
	return db
}

func seedCommission(t *testing.T, db *gorm.DB, payeeID uuid.UUID, status enums.CommissionStatus, netCents int64, fulfilled time.Time) *models.Commission {
	t.Helper()

	commission := &models.Commission{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		PayeeID:          payeeID,
		OrderAmountCents: netCents * 10,
		Rate:             decimal.NewFromFloat(0.07),
		GrossCents:       netCents + 35,
		PlatformFeeCents: 35,
		NetCents:         netCents,
		Status:           status,
		FulfilledAt:      fulfilled,
		CreatedAt:        fulfilled,
		UpdatedAt:        fulfilled,
	}
	if status == enums.CommissionStatusApproved {
		approved := fulfilled.Add(time.Hour)
		commission.ApprovedAt = &approved
	}
	require.NoError(t, db.Create(commission).Error)
	return commission
}

func TestRepositoryClaimForPayout_onlyApprovedUnclaimed(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	payeeID := uuid.New()
	now := time.Now().UTC()
	approved := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 1715, now.Add(-2*time.Hour))
	pending := seedCommission(t, db, payeeID, enums.CommissionStatusPending, 2500, now.Add(-time.Hour))

	payoutID := uuid.New()
	claimed, err := repo.ClaimForPayout(context.Background(), payeeID, []uuid.UUID{approved.ID, pending.ID}, payoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)

	reloaded, err := repo.FindCommission(context.Background(), approved.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.PayoutID)
	assert.Equal(t, payoutID, *reloaded.PayoutID)

	untouched, err := repo.FindCommission(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.PayoutID)
}

func TestRepositoryClaimForPayout_skipsForeignAndClaimed(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	payeeID := uuid.New()
	now := time.Now().UTC()
	foreign := seedCommission(t, db, uuid.New(), enums.CommissionStatusApproved, 900, now)
	taken := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 1200, now)

	earlier := uuid.New()
	_, err := repo.ClaimForPayout(context.Background(), payeeID, []uuid.UUID{taken.ID}, earlier)
	require.NoError(t, err)

	claimed, err := repo.ClaimForPayout(context.Background(), payeeID, []uuid.UUID{foreign.ID, taken.ID}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimed)

	reloaded, err := repo.FindCommission(context.Background(), taken.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.PayoutID)
	assert.Equal(t, earlier, *reloaded.PayoutID)
}

func TestRepositoryReleaseForPayout(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	payeeID := uuid.New()
	now := time.Now().UTC()
	commission := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 1715, now)

	payoutID := uuid.New()
	_, err := repo.ClaimForPayout(context.Background(), payeeID, []uuid.UUID{commission.ID}, payoutID)
	require.NoError(t, err)

	require.NoError(t, repo.ReleaseForPayout(context.Background(), payoutID))

	reloaded, err := repo.FindCommission(context.Background(), commission.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.PayoutID)
	assert.Equal(t, enums.CommissionStatusApproved, reloaded.Status)
}

func TestRepositoryMarkPaidForPayout(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	payeeID := uuid.New()
	now := time.Now().UTC()
	first := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 1715, now.Add(-time.Hour))
	second := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 2500, now)

	payoutID := uuid.New()
	claimed, err := repo.ClaimForPayout(context.Background(), payeeID, []uuid.UUID{first.ID, second.ID}, payoutID)
	require.NoError(t, err)
	require.Equal(t, int64(2), claimed)

	paidAt := now.Add(time.Minute)
	require.NoError(t, repo.MarkPaidForPayout(context.Background(), payoutID, paidAt))

	rows, err := repo.FindByPayout(context.Background(), payoutID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.CommissionStatusPaid, row.Status)
		require.NotNil(t, row.PaidAt)
	}
}

func TestRepositoryApproveCommission_guarded(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	commission := seedCommission(t, db, uuid.New(), enums.CommissionStatusPending, 1715, now)

	notes := "verified delivery photo"
	changed, err := repo.ApproveCommission(context.Background(), commission.ID, &notes)
	require.NoError(t, err)
	assert.True(t, changed)

	reloaded, err := repo.FindCommission(context.Background(), commission.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Notes)
	assert.Equal(t, notes, *reloaded.Notes)
	require.NotNil(t, reloaded.ApprovedAt)

	again, err := repo.ApproveCommission(context.Background(), commission.ID, nil)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestRepositoryListByPayee_filters(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)

	payeeID := uuid.New()
	now := time.Now().UTC()
	old := seedCommission(t, db, payeeID, enums.CommissionStatusPaid, 900, now.Add(-72*time.Hour))
	recent := seedCommission(t, db, payeeID, enums.CommissionStatusApproved, 1715, now.Add(-time.Hour))
	seedCommission(t, db, uuid.New(), enums.CommissionStatusApproved, 500, now)

	rows, total, err := repo.ListByPayee(context.Background(), payeeID, QueryFilters{}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, recent.ID, rows[0].ID)
	assert.Equal(t, old.ID, rows[1].ID)

	status := enums.CommissionStatusApproved
	from := now.Add(-24 * time.Hour)
	rows, total, err = repo.ListByPayee(context.Background(), payeeID, QueryFilters{Status: &status, DateFrom: &from}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, recent.ID, rows[0].ID)
}
