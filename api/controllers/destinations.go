package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftdrop/settlement-backend/api/responses"
	"github.com/swiftdrop/settlement-backend/api/validators"
	"github.com/swiftdrop/settlement-backend/internal/destinations"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

// DestinationList returns all of a payee's bank destinations.
func DestinationList(svc destinations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.List(ctx, payeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"destinations": rows})
	}
}

// DestinationEligible returns the destination the next payout would target.
func DestinationEligible(svc destinations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payeeID, err := validators.ParsePathUUID(chi.URLParam(r, "payeeId"), "payeeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		destination, err := svc.Eligible(ctx, payeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, destination)
	}
}
