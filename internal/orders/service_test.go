package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

type stubOrdersRepo struct {
	order        *models.Order
	updates      map[string]any
	updateResult *bool
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	if s.updateResult != nil {
		return *s.updateResult, nil
	}
	if s.order == nil || s.order.ID != orderID || s.order.Status != expected {
		return false, nil
	}
	s.updates = updates
	if v, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = v
	}
	return true, nil
}

type stubMaterializer struct {
	materialized []uuid.UUID
	exists       bool
	err          error
}

func (s *stubMaterializer) MaterializeInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.materialized = append(s.materialized, orderID)
	return nil
}

func (s *stubMaterializer) ExistsForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return s.exists, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo *stubOrdersRepo, mat *stubMaterializer) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, mat, testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func testOrder(status enums.OrderStatus, method enums.FulfillmentMethod) *models.Order {
	payeeID := uuid.New()
	return &models.Order{
		ID:                uuid.New(),
		CustomerID:        uuid.New(),
		PayeeID:           &payeeID,
		FulfillmentMethod: method,
		Status:            status,
		SubtotalCents:     24000,
		TaxCents:          1000,
		TotalCents:        25000,
	}
}

func TestTransitionForward(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusPending, enums.FulfillmentMethodFleet)}
	mat := &stubMaterializer{}
	svc := newTestService(t, repo, mat)

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusConfirmed,
		ActorRole: enums.ActorRoleVendor,
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if result.From != enums.OrderStatusPending || result.To != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if repo.order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("order status not persisted, got %s", repo.order.Status)
	}
	if len(mat.materialized) != 0 {
		t.Fatal("commission should not materialize before delivery")
	}
}

func TestTransitionSkipRejected(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusPending, enums.FulfillmentMethodFleet)}
	svc := newTestService(t, repo, &stubMaterializer{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusReady,
		ActorRole: enums.ActorRoleVendor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionSameStatusRejected(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusConfirmed, enums.FulfillmentMethodFleet)}
	svc := newTestService(t, repo, &stubMaterializer{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusConfirmed,
		ActorRole: enums.ActorRoleVendor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestDeliveredRequiresMatchingRole(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusOutForDelivery, enums.FulfillmentMethodAgentPickup)}
	mat := &stubMaterializer{}
	svc := newTestService(t, repo, mat)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusDelivered,
		ActorRole: enums.ActorRoleDriver,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(mat.materialized) != 0 {
		t.Fatal("no commission expected for rejected delivery")
	}
}

func TestDeliveredMaterializesCommission(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusOutForDelivery, enums.FulfillmentMethodAgentPickup)}
	mat := &stubMaterializer{}
	svc := newTestService(t, repo, mat)

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusDelivered,
		ActorRole: enums.ActorRoleAgent,
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if result.FulfilledAt == nil {
		t.Fatal("fulfilled_at not set")
	}
	if len(mat.materialized) != 1 || mat.materialized[0] != repo.order.ID {
		t.Fatalf("commission not materialized for order, calls: %v", mat.materialized)
	}
}

func TestCancelBeforeDelivery(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusOutForDelivery, enums.FulfillmentMethodFleet)}
	svc := newTestService(t, repo, &stubMaterializer{})

	result, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusCancelled,
		ActorRole: enums.ActorRoleOperator,
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if result.To != enums.OrderStatusCancelled || result.CancelledAt == nil {
		t.Fatalf("unexpected cancel result: %+v", result)
	}
	if result.From != enums.OrderStatusOutForDelivery {
		t.Fatalf("from: want out_for_delivery, got %s", result.From)
	}
}

func TestCancelAfterCommissionRejected(t *testing.T) {
	repo := &stubOrdersRepo{order: testOrder(enums.OrderStatusDelivered, enums.FulfillmentMethodFleet)}
	svc := newTestService(t, repo, &stubMaterializer{exists: true})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusCancelled,
		ActorRole: enums.ActorRoleOperator,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Message() != "commission already exists for order" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestTransitionConcurrentChangeRejected(t *testing.T) {
	lost := false
	repo := &stubOrdersRepo{
		order:        testOrder(enums.OrderStatusPending, enums.FulfillmentMethodFleet),
		updateResult: &lost,
	}
	svc := newTestService(t, repo, &stubMaterializer{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   repo.order.ID,
		Target:    enums.OrderStatusConfirmed,
		ActorRole: enums.ActorRoleVendor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionUnknownOrder(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newTestService(t, repo, &stubMaterializer{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   uuid.New(),
		Target:    enums.OrderStatusConfirmed,
		ActorRole: enums.ActorRoleVendor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
