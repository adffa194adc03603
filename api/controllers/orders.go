package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftdrop/settlement-backend/api/middleware"
	"github.com/swiftdrop/settlement-backend/api/responses"
	"github.com/swiftdrop/settlement-backend/api/validators"
	"github.com/swiftdrop/settlement-backend/internal/orders"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

type orderStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// OrderTransition advances an order through its lifecycle.
func OrderTransition(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body orderStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": body.Status}))
			return
		}
		role, ok := middleware.ActorRole(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "actor role missing"))
			return
		}

		result, err := svc.Transition(ctx, orders.TransitionInput{
			OrderID:   orderID,
			Target:    target,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
