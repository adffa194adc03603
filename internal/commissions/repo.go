package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
)

// QueryFilters describe the inputs supported by the commission list.
type QueryFilters struct {
	Status   *enums.CommissionStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// Repository manages persistence for commissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCommission(ctx context.Context, commission *models.Commission) error
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Commission, error)
	ListByPayee(ctx context.Context, payeeID uuid.UUID, filters QueryFilters, params pagination.Params) ([]models.Commission, int64, error)

	// ApproveCommission flips pending to approved, stamping approved_at and
	// optional operator notes, and reports whether a row changed. A false
	// return means the commission was not pending.
	ApproveCommission(ctx context.Context, id uuid.UUID, notes *string) (bool, error)

	// ClaimForPayout stamps payout_id on the given commissions, guarded so
	// only approved, unclaimed rows of the payee are touched. Returns the
	// number of rows claimed; callers compare it against len(ids) and roll
	// back on mismatch.
	ClaimForPayout(ctx context.Context, payeeID uuid.UUID, ids []uuid.UUID, payoutID uuid.UUID) (int64, error)

	// ReleaseForPayout clears the claim on a failed payout's commissions so
	// they become selectable again.
	ReleaseForPayout(ctx context.Context, payoutID uuid.UUID) error

	// MarkPaidForPayout settles all commissions claimed by a completed payout.
	MarkPaidForPayout(ctx context.Context, payoutID uuid.UUID, paidAt time.Time) error

	FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.Commission, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCommission(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByPayee(ctx context.Context, payeeID uuid.UUID, filters QueryFilters, params pagination.Params) ([]models.Commission, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("payee_id = ?", payeeID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("fulfilled_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("fulfilled_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Commission
	err := query.
		Order("fulfilled_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ApproveCommission(ctx context.Context, id uuid.UUID, notes *string) (bool, error) {
	updates := map[string]any{
		"status":      enums.CommissionStatusApproved,
		"approved_at": time.Now().UTC(),
		"updated_at":  time.Now().UTC(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id = ? AND status = ?", id, enums.CommissionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClaimForPayout(ctx context.Context, payeeID uuid.UUID, ids []uuid.UUID, payoutID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id IN ? AND payee_id = ? AND status = ? AND payout_id IS NULL",
			ids, payeeID, enums.CommissionStatusApproved).
		Updates(map[string]any{
			"payout_id":  payoutID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ReleaseForPayout(ctx context.Context, payoutID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.CommissionStatusApproved).
		Updates(map[string]any{
			"payout_id":  nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) MarkPaidForPayout(ctx context.Context, payoutID uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.CommissionStatusApproved).
		Updates(map[string]any{
			"status":     enums.CommissionStatusPaid,
			"paid_at":    paidAt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("fulfilled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
