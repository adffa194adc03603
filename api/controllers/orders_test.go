package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/api/middleware"
	"github.com/swiftdrop/settlement-backend/internal/orders"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

type stubOrderService struct {
	result *orders.TransitionResult
	err    error
	input  orders.TransitionInput
}

func (s *stubOrderService) Transition(ctx context.Context, input orders.TransitionInput) (*orders.TransitionResult, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newOrderRouter(svc orders.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Actor(testLogger()))
	r.Post("/orders/{orderId}/status", OrderTransition(svc, testLogger()))
	return r
}

func TestOrderTransitionHandler(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{
		result: &orders.TransitionResult{
			OrderID: orderID,
			From:    enums.OrderStatusPending,
			To:      enums.OrderStatusConfirmed,
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/status",
		strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "vendor")
	rec := httptest.NewRecorder()

	newOrderRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.input.Target != enums.OrderStatusConfirmed {
		t.Fatalf("service saw target %s", svc.input.Target)
	}
	if svc.input.ActorRole != enums.ActorRoleVendor {
		t.Fatalf("service saw role %s", svc.input.ActorRole)
	}

	var envelope struct {
		Data orders.TransitionResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.To != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestOrderTransitionHandlerRejectsMissingActor(t *testing.T) {
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()

	newOrderRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: want 403, got %d", rec.Code)
	}
}

func TestOrderTransitionHandlerUnknownStatus(t *testing.T) {
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status":"vaporized"}`))
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "vendor")
	rec := httptest.NewRecorder()

	newOrderRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rec.Code)
	}
}

func TestOrderTransitionHandlerMapsStateConflict(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot transition pending order to ready")}
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status":"ready"}`))
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "vendor")
	rec := httptest.NewRecorder()

	newOrderRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "STATE_CONFLICT" {
		t.Fatalf("error code: want STATE_CONFLICT, got %s", envelope.Error.Code)
	}
}
