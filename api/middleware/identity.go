package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// Identity headers are stamped by the authenticating edge proxy. This
// service trusts them; it performs no credential verification itself.
const (
	userIDHeader   = "X-User-Id"
	sellerIDHeader = "X-Seller-Id"
	adminHeader    = "X-Admin"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxSellerID contextKey = "seller_id"
	ctxIsAdmin  contextKey = "is_admin"
)

// Identity lifts the proxy identity headers into the request context and the
// logger.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get(userIDHeader); userID != "" {
				ctx = context.WithValue(ctx, ctxUserID, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}
			if sellerID := r.Header.Get(sellerIDHeader); sellerID != "" {
				ctx = context.WithValue(ctx, ctxSellerID, sellerID)
				if logg != nil {
					ctx = logg.WithSellerID(ctx, sellerID)
				}
			}
			if r.Header.Get(adminHeader) == "true" {
				ctx = context.WithValue(ctx, ctxIsAdmin, true)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	return parseCtxUUID(ctx, ctxUserID)
}

// SellerIDFromContext returns the acting seller id, or uuid.Nil.
func SellerIDFromContext(ctx context.Context) uuid.UUID {
	return parseCtxUUID(ctx, ctxSellerID)
}

// IsAdmin reports whether the request carries the admin flag.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(ctxIsAdmin).(bool)
	return v
}

func parseCtxUUID(ctx context.Context, key contextKey) uuid.UUID {
	raw, ok := ctx.Value(key).(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSeller rejects requests without an acting seller.
func RequireSeller(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SellerIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "seller account required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests without the admin flag.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
