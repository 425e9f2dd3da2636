package http

import (
	"context"
	"log"
	"net/http"
	"strings"

	"quizlytic-service/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a bearer token to the account it was issued for.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (domain.User, error)
}

// requireAuth rejects requests without a valid bearer token and stores the
// resolved user on the request context.
func requireAuth(auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := auth.CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

func currentUser(r *http.Request) domain.User {
	user, _ := r.Context().Value(userKey).(domain.User)
	return user
}

// LogRequests is a minimal access log.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		log.Printf("%s %s", r.Method, r.URL.Path)
	})
}
