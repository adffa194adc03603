package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
)

// Repository manages persistence for payouts. Status writes are guarded on the
// expected current status so concurrent sweeps cannot double-drive a payout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePayout(ctx context.Context, payout *models.Payout) error
	FindPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByPayee(ctx context.Context, payeeID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) ([]models.Payout, int64, error)

	// FindDue returns pending payouts whose scheduled time has passed.
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Payout, error)
	// FindStaleProcessing returns processing payouts whose last attempt is
	// older than the cutoff. The gateway is idempotent per payout id, so
	// re-driving these is safe.
	FindStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.Payout, error)

	MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, reference string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Preload("Commissions").
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByPayee(ctx context.Context, payeeID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) ([]models.Payout, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("payee_id = ?", payeeID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payout
	err := query.
		Order("requested_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", enums.PayoutStatusPending, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND processed_at <= ?", enums.PayoutStatusProcessing, cutoff).
		Order("processed_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) guardedUpdate(ctx context.Context, id uuid.UUID, expected enums.PayoutStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.guardedUpdate(ctx, id, enums.PayoutStatusPending, map[string]any{
		"status":       enums.PayoutStatusProcessing,
		"processed_at": at,
	})
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, reference string, at time.Time) (bool, error) {
	return r.guardedUpdate(ctx, id, enums.PayoutStatusProcessing, map[string]any{
		"status":             enums.PayoutStatusCompleted,
		"transfer_reference": reference,
		"completed_at":       at,
	})
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.guardedUpdate(ctx, id, enums.PayoutStatusProcessing, map[string]any{
		"status":         enums.PayoutStatusFailed,
		"failure_reason": reason,
	})
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.guardedUpdate(ctx, id, enums.PayoutStatusPending, map[string]any{
		"status": enums.PayoutStatusCancelled,
	})
}
