package sphsig

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type requestIDKey struct{}

// RequestIDFromContext returns the sph-request-id of a request verified by
// Middleware. Returns an empty string if none is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// MiddlewareConfig configures the server-side verification middleware.
type MiddlewareConfig struct {
	// Verify configures how signatures are verified.
	Verify VerifyConfig

	// OnError is called when verification fails. When nil, malformed
	// requests get 400 Bad Request and all other failures 401
	// Unauthorized, both without a body.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware returns a mux.MiddlewareFunc that verifies signed requests
// coming from the gateway: server callbacks (HeaderFields) or browser
// redirects (QueryFields, FormFields).
//
// It returns ErrNoResolver if VerifyConfig.Resolver is nil, and
// ErrReplayWithoutMaxAge if a replay guard is set without MaxAge.
func Middleware(cfg MiddlewareConfig) (mux.MiddlewareFunc, error) {
	if err := cfg.Verify.validate(); err != nil {
		return nil, err
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	verifyCfg := cfg.Verify

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields, err := verifyRequest(r, verifyCfg)
			if err != nil {
				onError(w, r, err)
				return
			}

			if id, ok := fields.Get(FieldRequestID); ok {
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func defaultOnError(w http.ResponseWriter, _ *http.Request, err error) {
	if IsMalformed(err) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusUnauthorized)
}
