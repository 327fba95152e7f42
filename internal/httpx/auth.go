package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/dairydirect/api/internal/domain"
)

type actorKey struct{}

// requireAuth resolves the Bearer token into the acting user and stores
// it on the request context. Failures answer 401 rather than 403 so
// clients can tell a missing/expired token from a permission problem.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}

		actor, err := s.Users.ResolveActor(r.Context(), token)
		if err != nil {
			if domain.IsAuthorization(err) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
				return
			}
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) domain.User {
	actor, _ := r.Context().Value(actorKey{}).(domain.User)
	return actor
}
