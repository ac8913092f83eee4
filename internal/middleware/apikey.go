package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/auth"
	"github.com/IoFMT/Inception/internal/metrics"
)

// APIKey resolves the caller's credential before the handler runs. The
// resolved identity is stored in the request context; an unresolvable or
// absent key rejects the request outright.
func APIKey(resolver *auth.Resolver, m *metrics.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), auth.ExtractKey(r))
			if err != nil {
				m.ObserveAuthRejection()
				logger.Warn("api key rejected",
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get("X-Request-ID")),
					zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"status":"Error","message":"could not validate credentials","data":[]}`))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity stored by the APIKey middleware.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(auth.Identity)
	return identity, ok
}
