package commissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
	"github.com/swiftdrop/settlement-backend/pkg/tiers"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines commission ledger operations.
type Service interface {
	// MaterializeInTx creates the commission for a delivered order inside the
	// caller's transaction. Idempotent per order: a second call is a no-op.
	MaterializeInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ExistsForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)

	Approve(ctx context.Context, commissionID uuid.UUID, notes *string) (*models.Commission, error)
	Query(ctx context.Context, payeeID uuid.UUID, filters QueryFilters, params pagination.Params) (*List, error)
}

// List wraps a page of commissions plus the unpaginated total.
type List struct {
	Commissions []models.Commission `json:"commissions"`
	Total       int64               `json:"total"`
}

type service struct {
	repo            Repository
	tx              txRunner
	rates           tiers.RateProvider
	platformFeeRate decimal.Decimal
	log             *logger.Logger
}

// NewService builds a commission service with the required dependencies.
func NewService(repo Repository, tx txRunner, rates tiers.RateProvider, platformFeeRate decimal.Decimal, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	one := decimal.NewFromInt(1)
	if platformFeeRate.IsNegative() || platformFeeRate.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("platform fee rate must be in [0,1), got %s", platformFeeRate)
	}
	return &service{
		repo:            repo,
		tx:              tx,
		rates:           rates,
		platformFeeRate: platformFeeRate,
		log:             log,
	}, nil
}

// Amounts is the commission money breakdown for one order, all in whole cents.
type Amounts struct {
	GrossCents       int64
	PlatformFeeCents int64
	NetCents         int64
}

// ComputeAmounts applies rate to the order total and deducts the platform fee.
// Each multiplication rounds half away from zero to whole cents before the
// next step so the stored figures always sum exactly.
func ComputeAmounts(orderAmountCents int64, rate, platformFeeRate decimal.Decimal) Amounts {
	gross := decimal.NewFromInt(orderAmountCents).Mul(rate).Round(0).IntPart()
	fee := decimal.NewFromInt(gross).Mul(platformFeeRate).Round(0).IntPart()
	return Amounts{
		GrossCents:       gross,
		PlatformFeeCents: fee,
		NetCents:         gross - fee,
	}
}

func (s *service) MaterializeInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)

	exists, err := repo.ExistsForOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing commission")
	}
	if exists {
		return nil
	}

	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "commission requires a delivered order")
	}
	if order.PayeeID == nil {
		// Orders without a sales agent (e.g. self-pickup) settle without a
		// commission; delivery must not be blocked.
		s.log.Info(s.log.WithOrderID(ctx, order.ID.String()), "order has no payee, skipping commission")
		return nil
	}
	fulfilledAt := time.Now().UTC()
	if order.FulfilledAt != nil {
		fulfilledAt = *order.FulfilledAt
	}

	rate, err := s.rates.GetCommissionRate(ctx, *order.PayeeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve commission rate")
	}

	amounts := ComputeAmounts(order.TotalCents, rate, s.platformFeeRate)
	commission := &models.Commission{
		OrderID:          order.ID,
		PayeeID:          *order.PayeeID,
		OrderAmountCents: order.TotalCents,
		Rate:             rate,
		GrossCents:       amounts.GrossCents,
		PlatformFeeCents: amounts.PlatformFeeCents,
		NetCents:         amounts.NetCents,
		Status:           enums.CommissionStatusPending,
		FulfilledAt:      fulfilledAt,
	}
	if err := repo.CreateCommission(ctx, commission); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
	}

	lctx := s.log.WithOrderID(ctx, order.ID.String())
	lctx = s.log.WithPayeeID(lctx, order.PayeeID.String())
	s.log.Info(lctx, fmt.Sprintf("commission materialized, net %d cents at rate %s", amounts.NetCents, rate))
	return nil
}

func (s *service) ExistsForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return s.repo.WithTx(tx).ExistsForOrder(ctx, orderID)
}

func (s *service) Approve(ctx context.Context, commissionID uuid.UUID, notes *string) (*models.Commission, error) {
	if commissionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}

	var approved *models.Commission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		commission, err := repo.FindCommission(ctx, commissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
		}
		if commission.Status != enums.CommissionStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("commission is %s, only pending commissions can be approved", commission.Status))
		}

		changed, err := repo.ApproveCommission(ctx, commissionID, notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve commission")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission changed concurrently, retry with fresh state")
		}

		approved, err = repo.FindCommission(ctx, commissionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload commission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *service) Query(ctx context.Context, payeeID uuid.UUID, filters QueryFilters, params pagination.Params) (*List, error) {
	if payeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown commission status")
	}
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_to before date_from")
	}
	params = pagination.Normalize(params)

	rows, total, err := s.repo.ListByPayee(ctx, payeeID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	return &List{Commissions: rows, Total: total}, nil
}
