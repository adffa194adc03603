package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CommissionMaterializer creates the commission for a delivered order inside
// the delivery transaction. It must be idempotent per order.
type CommissionMaterializer interface {
	MaterializeInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ExistsForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

// Service defines order lifecycle operations.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	commissions CommissionMaterializer
	log         *logger.Logger
}

// TransitionInput captures a requested status change and the actor behind it.
type TransitionInput struct {
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	ActorRole enums.ActorRole
	Reason    *string
}

// TransitionResult reports the applied change.
type TransitionResult struct {
	OrderID     uuid.UUID         `json:"order_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	FulfilledAt *time.Time        `json:"fulfilled_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
}

// NewService builds an order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, commissions CommissionMaterializer, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission materializer required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		commissions: commissions,
		log:         log,
	}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if !input.ActorRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown actor role")
	}
	if input.Target == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orders start in pending, cannot transition into it")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if input.Target == enums.OrderStatusCancelled {
			result, err = s.cancelInTx(ctx, tx, repo, order, input)
			return err
		}

		// Snapshot before the guarded update; the repo may mutate the loaded row.
		from := order.Status

		next, ok := NextStatus(from)
		if !ok || next != input.Target {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition %s order to %s", from, input.Target)).
				WithDetails(map[string]any{"current": from, "requested": input.Target})
		}

		updates := map[string]any{"status": input.Target}
		var fulfilledAt *time.Time
		if input.Target == enums.OrderStatusDelivered {
			if !CanMarkDelivered(order.FulfillmentMethod, input.ActorRole) {
				return pkgerrors.New(pkgerrors.CodeForbidden,
					fmt.Sprintf("role %s cannot mark %s order delivered", input.ActorRole, order.FulfillmentMethod))
			}
			now := time.Now().UTC()
			fulfilledAt = &now
			updates["fulfilled_at"] = now
		}

		changed, err := repo.UpdateOrderStatus(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, retry with fresh state")
		}

		if input.Target == enums.OrderStatusDelivered {
			if err := s.commissions.MaterializeInTx(ctx, tx, order.ID); err != nil {
				return err
			}
		}

		result = &TransitionResult{
			OrderID:     order.ID,
			From:        from,
			To:          input.Target,
			FulfilledAt: fulfilledAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lctx := s.log.WithOrderID(ctx, result.OrderID.String())
	lctx = s.log.WithActorRole(lctx, input.ActorRole.String())
	s.log.Info(lctx, fmt.Sprintf("order transitioned %s -> %s", result.From, result.To))
	return result, nil
}

func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input TransitionInput) (*TransitionResult, error) {
	if order.Status.IsTerminal() {
		exists, err := s.commissions.ExistsForOrderInTx(ctx, tx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check commission for order")
		}
		if exists {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "commission already exists for order")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order already %s", order.Status))
	}

	from := order.Status
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}
	changed, err := repo.UpdateOrderStatus(ctx, order.ID, from, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, retry with fresh state")
	}

	return &TransitionResult{
		OrderID:     order.ID,
		From:        from,
		To:          enums.OrderStatusCancelled,
		CancelledAt: &now,
	}, nil
}
