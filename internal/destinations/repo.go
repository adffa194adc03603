package destinations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// Repository manages persistence for bank destinations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDestination(ctx context.Context, id uuid.UUID) (*models.BankDestination, error)
	ListByPayee(ctx context.Context, payeeID uuid.UUID) ([]models.BankDestination, error)
	// FindVerifiedPrimary returns the payee's primary destination only when it
	// is verified.
	FindVerifiedPrimary(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error)
	// FindNewestVerified returns the most recently verified destination.
	FindNewestVerified(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a destinations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDestination(ctx context.Context, id uuid.UUID) (*models.BankDestination, error) {
	var destination models.BankDestination
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&destination).Error; err != nil {
		return nil, err
	}
	return &destination, nil
}

func (r *repository) ListByPayee(ctx context.Context, payeeID uuid.UUID) ([]models.BankDestination, error) {
	var rows []models.BankDestination
	err := r.db.WithContext(ctx).
		Where("payee_id = ?", payeeID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindVerifiedPrimary(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error) {
	var destination models.BankDestination
	err := r.db.WithContext(ctx).
		Where("payee_id = ? AND is_primary AND status = ?", payeeID, enums.DestinationStatusVerified).
		First(&destination).Error
	if err != nil {
		return nil, err
	}
	return &destination, nil
}

func (r *repository) FindNewestVerified(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error) {
	var destination models.BankDestination
	err := r.db.WithContext(ctx).
		Where("payee_id = ? AND status = ?", payeeID, enums.DestinationStatusVerified).
		Order("verified_at DESC").
		First(&destination).Error
	if err != nil {
		return nil, err
	}
	return &destination, nil
}
