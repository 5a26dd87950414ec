package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxIdentityKey contextKey = "identity"

// APIKeyHeader carries an agent API key for runs by callers without an account.
const APIKeyHeader = "X-API-Key"

const unauthorizedBody = `{"error":{"code":"unauthorized","message":"missing or invalid bearer token"}}`

// Identity is the verified caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// TokenValidator verifies a bearer token and returns the user id and role it carries.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// Authenticate verifies the bearer token when one is sent and stores the caller's
// Identity in the request context. Requests without an Authorization header pass
// through anonymously; a bad token is rejected with 401.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw := extractBearer(r)
			if raw == "" {
				writeUnauthorized(w)
				return
			}
			userID, role, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that carry no Identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromCtx(r.Context()); !ok {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromCtx returns the authenticated caller, if any.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(Identity)
	return id, ok
}

// UserIDFromCtx returns the caller's user id or uuid.Nil when anonymous.
func UserIDFromCtx(ctx context.Context) uuid.UUID {
	id, _ := IdentityFromCtx(ctx)
	return id.UserID
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// APIKeyFromRequest returns the agent API key sent with r, if any.
func APIKeyFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
