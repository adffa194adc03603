package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftdrop/settlement-backend/api/responses"
	"github.com/swiftdrop/settlement-backend/api/validators"
	"github.com/swiftdrop/settlement-backend/internal/commissions"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/pagination"
)

// CommissionList returns a payee's commissions, filtered and paginated.
func CommissionList(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filters := commissions.QueryFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCommissionStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown commission status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}
		if filters.DateFrom, err = validators.ParseQueryTime(r, "date_from"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if filters.DateTo, err = validators.ParseQueryTime(r, "date_to"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
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

		list, err := svc.Query(ctx, payeeID, filters, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type approveBody struct {
	Notes *string `json:"notes" validate:"omitempty,max=500"`
}

// CommissionApprove moves a pending commission to approved.
func CommissionApprove(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		commissionID, err := validators.ParsePathUUID(chi.URLParam(r, "commissionId"), "commissionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Body is optional; notes only travel when the operator sends them.
		var body approveBody
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		approved, err := svc.Approve(ctx, commissionID, body.Notes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, approved)
	}
}
