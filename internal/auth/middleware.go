package auth

import (
	"context"
	"net/http"

	"unistay/internal/models"
	"unistay/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware verifies the bearer token and stores the caller identity in the
// request context. Token issuance lives outside this service; only the shared
// secret is needed here.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.Error(w, http.StatusUnauthorized, err.Error())
				return
			}

			identity, err := ParseToken(rawToken, secret)
			if err != nil {
				utils.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the caller identity set by Middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a context carrying the given identity. Used by tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func requireType(userType models.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := FromContext(r.Context())
			if identity == nil {
				utils.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if identity.UserType != userType {
				utils.Error(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireStudent() func(http.Handler) http.Handler {
	return requireType(models.UserTypeStudent)
}

func RequireOwner() func(http.Handler) http.Handler {
	return requireType(models.UserTypeOwner)
}

func RequireAdmin() func(http.Handler) http.Handler {
	return requireType(models.UserTypeAdmin)
}
