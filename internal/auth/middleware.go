package auth

import (
	"net/http"
	"strings"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware validates the bearer token and stores the actor on the request context.
func Middleware(resolver ActorResolver, skipper Skipper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipper != nil && skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := BearerToken(r.Header.Get("Authorization"))
			if _, static := resolver.(Static); err != nil && !static {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			actor, err := resolver.ResolveActor(r.Context(), token)
			if err != nil {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("bearer "):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
