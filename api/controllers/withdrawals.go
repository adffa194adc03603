package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/api/responses"
	"github.com/swiftdrop/settlement-backend/api/validators"
	"github.com/swiftdrop/settlement-backend/internal/limits"
	"github.com/swiftdrop/settlement-backend/internal/payouts"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
)

type withdrawalBody struct {
	CommissionIDs []string `json:"commission_ids" validate:"required,min=1,max=100,dive,uuid"`
	DestinationID *string  `json:"destination_id" validate:"omitempty,uuid"`
}

// WithdrawalCreate batches approved commissions into a payout request.
func WithdrawalCreate(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body withdrawalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := payouts.CreateInput{PayeeID: payeeID}
		for _, raw := range body.CommissionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "commission ids must be uuids").WithDetails(map[string]any{"value": raw}))
				return
			}
			input.CommissionIDs = append(input.CommissionIDs, id)
		}
		if body.DestinationID != nil {
			id, err := uuid.Parse(*body.DestinationID)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "destination id must be a uuid"))
				return
			}
			input.DestinationID = &id
		}

		payout, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// WithdrawalList returns a payee's payouts, newest first.
func WithdrawalList(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var status *enums.PayoutStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status").WithDetails(map[string]any{"status": raw}))
				return
			}
			status = &parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, payeeID, status, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// WithdrawalGet returns one payout with its claimed commissions.
func WithdrawalGet(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutId"), "payoutId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payout, err := svc.Get(ctx, payeeID, payoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// WithdrawalCancel withdraws a pending payout.
func WithdrawalCancel(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payoutID, err := validators.ParsePathUUID(chi.URLParam(r, "payoutId"), "payoutId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(ctx, payeeID, payoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

// WithdrawalLimits reports the payee's effective caps and current usage.
func WithdrawalLimits(svc limits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Status(ctx, payeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
