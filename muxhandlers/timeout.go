package muxhandlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not greater
// than zero.
var ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

// TimeoutConfig configures the Timeout middleware.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the handler to complete,
	// replay guard round trips included.
	Duration time.Duration

	// Message is the response body returned on timeout. When empty, the
	// standard library default is used.
	Message string
}

// TimeoutMiddleware limits handler execution time with http.TimeoutHandler,
// which answers 503 Service Unavailable and cancels the request context
// when the handler does not complete in time.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func TimeoutMiddleware(cfg TimeoutConfig) (mux.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	duration := cfg.Duration
	message := cfg.Message

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, duration, message)
	}, nil
}
