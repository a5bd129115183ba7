package muxhandlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RecoveryConfig configures the Recovery middleware.
type RecoveryConfig struct {
	// Logger receives recovered panics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers, logs them and answers 500 Internal Server Error.
// http.ErrAbortHandler is re-raised so the server can abort the response.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("correlation_id", CorrelationIDFromContext(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
