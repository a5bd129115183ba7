package muxhandlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HeaderCorrelationID carries the per-request correlation id.
const HeaderCorrelationID = "X-Correlation-ID"

type correlationIDKey struct{}

// CorrelationIDFromContext returns the id stored by CorrelationIDMiddleware.
// Returns an empty string if none is present.
//
// The correlation id names one HTTP exchange with this server. It is
// unrelated to the gateway's signed sph-request-id.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}

// CorrelationIDConfig configures the Correlation ID middleware.
type CorrelationIDConfig struct {
	// HeaderName overrides the header used to propagate the id. Defaults to
	// HeaderCorrelationID.
	HeaderName string

	// GenerateFunc returns a new id. Defaults to GenerateUUIDv7.
	GenerateFunc func(r *http.Request) string

	// TrustIncoming reuses an id sent by the caller when it is a UUID.
	// Anything else is replaced, so ids written to logs stay well formed.
	TrustIncoming bool
}

// CorrelationIDMiddleware generates or propagates a correlation id. The id
// is set on the request header, the response header and the request
// context.
func CorrelationIDMiddleware(cfg CorrelationIDConfig) mux.MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = HeaderCorrelationID
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv7
	}

	trustIncoming := cfg.TrustIncoming

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if trustIncoming {
				if incoming, err := uuid.Parse(r.Header.Get(headerName)); err == nil {
					id = incoming.String()
				}
			}

			if id == "" {
				id = generate(r)
			}

			if id != "" {
				r.Header.Set(headerName, id)
				w.Header().Set(headerName, id)
				r = r.WithContext(context.WithValue(r.Context(), correlationIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GenerateUUIDv7 returns a new time-ordered UUID v7 string, so ids sort by
// arrival in logs.
func GenerateUUIDv7(_ *http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}
