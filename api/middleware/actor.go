package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/swiftdrop/settlement-backend/api/responses"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

// Identity is verified upstream; the edge proxy injects these headers after
// authenticating the caller. This service only reads them.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type actorIDKey struct{}
type actorRoleKey struct{}

// Actor requires a verified actor identity on every request it wraps.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			actorID, err := uuid.Parse(r.Header.Get(actorIDHeader))
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "verified actor identity missing"))
				return
			}
			role, err := enums.ParseActorRole(r.Header.Get(actorRoleHeader))
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "verified actor role missing"))
				return
			}

			ctx = context.WithValue(ctx, actorIDKey{}, actorID)
			ctx = context.WithValue(ctx, actorRoleKey{}, role)
			if logg != nil {
				ctx = logg.WithActorRole(ctx, role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the verified actor id from the request context.
func ActorID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorIDKey{}).(uuid.UUID)
	return id, ok
}

// ActorRole returns the verified actor role from the request context.
func ActorRole(ctx context.Context) (enums.ActorRole, bool) {
	role, ok := ctx.Value(actorRoleKey{}).(enums.ActorRole)
	return role, ok
}
