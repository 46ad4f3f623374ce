package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TokenValidator checks an access token and resolves it to a user id.
type TokenValidator interface {
	GetUIDByToken(ctx context.Context, token string) (uuid.UUID, bool)
}

// Authenticate parses a Bearer token when one is present and puts the user
// id into the request context under the key "userID". Requests without a
// valid token pass through anonymous; route-level checks decide what an
// anonymous caller may do.
func Authenticate(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			uid, ok := auth.GetUIDByToken(r.Context(), token)
			if !ok {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), "userID", uid)))
		})
	}
}

// RequireUser rejects anonymous requests. Mounted after Authenticate on
// routes that mutate state.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == uuid.Nil {
			http.Error(w, "authorization token not provided", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID extracts the authenticated user id, uuid.Nil when anonymous.
func UserID(ctx context.Context) uuid.UUID {
	if uid, ok := ctx.Value("userID").(uuid.UUID); ok {
		return uid
	}
	return uuid.Nil
}
