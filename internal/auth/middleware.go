package auth

import (
	"net/http"
	"strings"

	"github.com/andino-transportes/andino/internal/platform/httpx"
	"github.com/andino-transportes/andino/internal/shared"
)

// Middleware resolves the bearer token into an actor on the request
// context. Requests without a valid token are rejected with 401.
func Middleware(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			actor, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
