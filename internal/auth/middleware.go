package auth

import (
	"net/http"

	"gofinances/internal/log"
)

// RequireAuth rejects requests without a valid bearer token and stores the
// identity in the request context. onError writes the rejection.
func RequireAuth(ts *TokenService, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var id Identity
				if id, err = ts.ParseToken(tokenStr); err == nil {
					logger := log.FromContext(r.Context()).With(log.FieldUserID, id.UserID)
					ctx := log.NewContext(WithIdentity(r.Context(), id), logger)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
				DebugContext(r.Context(), "Request rejected", log.FieldError, err.Error())
			if onError != nil {
				onError(w, r, err)
				return
			}
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}
