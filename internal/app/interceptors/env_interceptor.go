package interceptors

import (
	"context"
	"net/http"
)

const (
	EnvDev   = "dev"
	EnvLocal = "local"
	EnvProd  = "prod"
)

type contextKey string

const (
	EnvKey    contextKey = "env"
	CallerKey contextKey = "caller"
)

// EnvInterceptor middleware for initializing context by env key-value
func EnvInterceptor(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), EnvKey, env)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
