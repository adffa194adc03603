package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/internal/commissions"
	"github.com/swiftdrop/settlement-backend/internal/destinations"
	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
	"github.com/swiftdrop/settlement-backend/pkg/payeelock"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// limitChecker admits a gross amount against the payee's rolling caps.
type limitChecker interface {
	CheckInTx(ctx context.Context, tx *gorm.DB, payeeID uuid.UUID, amountCents int64) error
}

// admissionLocker serializes withdrawal admission per payee.
type admissionLocker interface {
	Acquire(ctx context.Context, payeeID uuid.UUID) (*payeelock.Lease, error)
}

// Service defines withdrawal request operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payout, error)
	Get(ctx context.Context, payeeID, payoutID uuid.UUID) (*models.Payout, error)
	List(ctx context.Context, payeeID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) (*List, error)
	// Cancel withdraws a still-pending payout and releases its commissions.
	Cancel(ctx context.Context, payeeID, payoutID uuid.UUID) (*models.Payout, error)
}

// CreateInput captures a withdrawal request.
type CreateInput struct {
	PayeeID       uuid.UUID
	CommissionIDs []uuid.UUID
	// DestinationID pins an explicit destination; nil lets the gate pick the
	// eligible one.
	DestinationID *uuid.UUID
}

// List wraps a page of payouts plus the unpaginated total.
type List struct {
	Payouts []models.Payout `json:"payouts"`
	Total   int64           `json:"total"`
}

type service struct {
	repo         Repository
	commissions  commissions.Repository
	destinations destinations.Service
	limits       limitChecker
	locks        admissionLocker
	tx           txRunner
	cfg          config.SettlementConfig
	log          *logger.Logger
}

// NewService builds a payout batcher with the required dependencies.
func NewService(
	repo Repository,
	commissionRepo commissions.Repository,
	destinationGate destinations.Service,
	limits limitChecker,
	locks admissionLocker,
	tx txRunner,
	cfg config.SettlementConfig,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if commissionRepo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if destinationGate == nil {
		return nil, fmt.Errorf("destination gate required")
	}
	if limits == nil {
		return nil, fmt.Errorf("limit checker required")
	}
	if locks == nil {
		return nil, fmt.Errorf("admission locker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		commissions:  commissionRepo,
		destinations: destinationGate,
		limits:       limits,
		locks:        locks,
		tx:           tx,
		cfg:          cfg,
		log:          log,
	}, nil
}

// ProcessingFee applies the platform's processing fee rate, rounding half away
// from zero to whole cents.
func ProcessingFee(grossCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(grossCents).Mul(rate).Round(0).IntPart()
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payout, error) {
	if input.PayeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	ids := dedupe(input.CommissionIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one commission id required")
	}

	// Admission for one payee is serialized: limiter check and payout
	// creation must not interleave across concurrent requests.
	lease, err := s.locks.Acquire(ctx, input.PayeeID)
	if err != nil {
		if errors.Is(err, payeelock.ErrNotAcquired) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTransient, err, "withdrawal admission busy for payee")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire admission lock")
	}
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.log.Warn(ctx, fmt.Sprintf("release admission lock: %v", releaseErr))
		}
	}()

	var payout *models.Payout
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		commissionRepo := s.commissions.WithTx(tx)

		rows, err := commissionRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commissions")
		}
		if len(rows) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more commissions not found")
		}

		var grossCents int64
		for _, commission := range rows {
			if commission.PayeeID != input.PayeeID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "commission does not belong to payee")
			}
			if commission.Status != enums.CommissionStatusApproved {
				return pkgerrors.New(pkgerrors.CodePrecondition, "only approved commissions can be withdrawn").
					WithDetails(map[string]any{"commission_id": commission.ID, "status": commission.Status})
			}
			if commission.PayoutID != nil {
				return pkgerrors.New(pkgerrors.CodePrecondition, "commission already claimed by another payout").
					WithDetails(map[string]any{"commission_id": commission.ID})
			}
			grossCents += commission.NetCents
		}

		var destinationID uuid.UUID
		if input.DestinationID != nil {
			destination, err := s.destinations.Validate(ctx, tx, input.PayeeID, *input.DestinationID)
			if err != nil {
				return err
			}
			destinationID = destination.ID
		} else {
			destination, err := s.destinations.EligibleInTx(ctx, tx, input.PayeeID)
			if err != nil {
				return err
			}
			destinationID = destination.ID
		}

		if err := s.limits.CheckInTx(ctx, tx, input.PayeeID, grossCents); err != nil {
			return err
		}

		now := time.Now().UTC()
		fee := ProcessingFee(grossCents, s.cfg.ProcessingFeeRate)
		payout = &models.Payout{
			PayeeID:            input.PayeeID,
			DestinationID:      destinationID,
			GrossCents:         grossCents,
			ProcessingFeeCents: fee,
			NetCents:           grossCents - fee,
			Status:             enums.PayoutStatusPending,
			RequestedAt:        now,
			ScheduledAt:        now.Add(s.cfg.PayoutDelay),
		}
		if err := s.repo.WithTx(tx).CreatePayout(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}

		claimed, err := commissionRepo.ClaimForPayout(ctx, input.PayeeID, ids, payout.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim commissions")
		}
		if claimed != int64(len(ids)) {
			// Someone else claimed between our read and the guarded
			// update. Roll the whole payout back.
			return pkgerrors.New(pkgerrors.CodePrecondition, "commission set changed during admission, retry selection").
				WithDetails(map[string]any{"requested": len(ids), "claimed": claimed})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lctx := s.log.WithPayeeID(ctx, input.PayeeID.String())
	lctx = s.log.WithPayoutID(lctx, payout.ID.String())
	s.log.Info(lctx, fmt.Sprintf("payout created, %d commissions, net %d cents", len(ids), payout.NetCents))
	return payout, nil
}

func (s *service) Get(ctx context.Context, payeeID, payoutID uuid.UUID) (*models.Payout, error) {
	if payeeID == uuid.Nil || payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id and payout id required")
	}
	payout, err := s.repo.FindPayout(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if payout.PayeeID != payeeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout does not belong to payee")
	}
	return payout, nil
}

func (s *service) List(ctx context.Context, payeeID uuid.UUID, status *enums.PayoutStatus, params pagination.Params) (*List, error) {
	if payeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status")
	}
	params = pagination.Normalize(params)

	rows, total, err := s.repo.ListByPayee(ctx, payeeID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return &List{Payouts: rows, Total: total}, nil
}

func (s *service) Cancel(ctx context.Context, payeeID, payoutID uuid.UUID) (*models.Payout, error) {
	if payeeID == uuid.Nil || payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id and payout id required")
	}

	var cancelled *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindPayout(ctx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout.PayeeID != payeeID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payout does not belong to payee")
		}

		changed, err := repo.MarkCancelled(ctx, payoutID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payout")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payout is %s, only pending payouts can be cancelled", payout.Status))
		}
		if err := s.commissions.WithTx(tx).ReleaseForPayout(ctx, payoutID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release commissions")
		}

		cancelled, err = repo.FindPayout(ctx, payoutID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
