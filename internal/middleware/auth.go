// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/auth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the verified credential.
	IdentityKey contextKey = "identity"
)

// Verifier resolves a bearer credential. *auth.Verifier satisfies it.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*auth.Verified, error)
}

// Authenticate verifies the bearer credential when one is sent and stores
// the result in the request context. Requests without an Authorization
// header continue as anonymous; a header that fails verification is
// rejected here so a bad token never silently downgrades to anonymous.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			verified, err := v.Verify(r.Context(), auth.BearerToken(header))
			switch {
			case err == nil:
			case errors.Is(err, apperr.ErrAccountDisabled):
				writeError(w, http.StatusForbidden, "account_disabled", "account is disabled")
				return
			case errors.Is(err, apperr.ErrUnauthenticated):
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			default:
				slog.Error("verify credential", "error", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			notePrincipal(r.Context(), verified.Principal.ID())
			ctx := context.WithValue(r.Context(), IdentityKey, verified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401. Must be applied after
// Authenticate in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if VerifiedFromCtx(r.Context()) == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VerifiedFromCtx extracts the verified credential from the request context.
// Returns nil for anonymous requests.
func VerifiedFromCtx(ctx context.Context) *auth.Verified {
	v, _ := ctx.Value(IdentityKey).(*auth.Verified)
	return v
}

// PrincipalFromCtx returns the acting principal, or nil when anonymous.
func PrincipalFromCtx(ctx context.Context) *access.Principal {
	v := VerifiedFromCtx(ctx)
	if v == nil {
		return nil
	}
	p := v.Principal
	return &p
}

// WithVerified returns ctx carrying v, as Authenticate would.
func WithVerified(ctx context.Context, v *auth.Verified) context.Context {
	return context.WithValue(ctx, IdentityKey, v)
}
