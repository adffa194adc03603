package limits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// usageStatuses are the payout states that consume withdrawal headroom.
// Failed and cancelled payouts release theirs.
var usageStatuses = []enums.PayoutStatus{
	enums.PayoutStatusPending,
	enums.PayoutStatusProcessing,
	enums.PayoutStatusCompleted,
}

// Repository manages persistence for withdrawal limits and usage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindOverride returns the payee's per-payee cap row if one exists.
	FindOverride(ctx context.Context, payeeID uuid.UUID) (*models.WithdrawalLimit, error)
	// SumUsageSince totals gross payout cents requested at or after the
	// anchor, counting only statuses that hold headroom.
	SumUsageSince(ctx context.Context, payeeID uuid.UUID, since time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a limits repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOverride(ctx context.Context, payeeID uuid.UUID) (*models.WithdrawalLimit, error) {
	var limit models.WithdrawalLimit
	if err := r.db.WithContext(ctx).Where("payee_id = ?", payeeID).First(&limit).Error; err != nil {
		return nil, err
	}
	return &limit, nil
}

func (r *repository) SumUsageSince(ctx context.Context, payeeID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("COALESCE(SUM(gross_cents), 0)").
		Where("payee_id = ? AND requested_at >= ? AND status IN ?", payeeID, since, usageStatuses).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
