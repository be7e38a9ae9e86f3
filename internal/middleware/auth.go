package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type principalKey struct{}

// WithPrincipal stores the authenticated principal name in the context.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFromContext extracts the principal name from the context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok
}

// Authenticate requires a valid Bearer token on every request. The token
// subject becomes the request principal. Failures answer 401 with the
// bridge error envelope.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, r, "a Bearer token is required")
				return
			}
			claims, err := validator.Validate(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeUnauthorized(w, r, "invalid bearer token")
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, r, "token carries no subject")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Subject)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	writeEnvelope(w, r, http.StatusUnauthorized, msg)
}

// writeEnvelope emits the bridge's failure envelope from middleware,
// mirroring the shape the API handler produces for translator errors.
func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	var requestID any
	if id := RequestIDFromContext(r.Context()); id != "" {
		requestID = id
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": strconv.Itoa(status),
		"request_id": requestID,
		"message":    msg,
	})
}
