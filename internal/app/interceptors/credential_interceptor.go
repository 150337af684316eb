package interceptors

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"bookmarker/internal/lib/jwt"
)

// CredentialParser verifies a session credential
type CredentialParser interface {
	Parse(token string) (*jwt.SessionClaims, error)
}

// CredentialInterceptor attaches the request caller to the context.
// Requests without a valid bearer credential continue as anonymous callers
// identified by their remote address.
func CredentialInterceptor(logger *slog.Logger, parser CredentialParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "interceptors.CredentialInterceptor"

			addr := remoteHost(r.RemoteAddr)
			claims := &jwt.SessionClaims{}
			if raw, ok := bearerToken(r); ok {
				parsed, err := parser.Parse(raw)
				if err != nil {
					logger.With(slog.String("op", op)).Debug("session credential rejected", slog.String("error", err.Error()))
				} else {
					claims = parsed
				}
			}

			ctx := context.WithValue(r.Context(), CallerKey, claims.Caller(addr))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
