package muxhandlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsizedReader hides the length from httptest.NewRequest.
type unsizedReader struct{ io.Reader }

func TestRequestSizeLimitMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		tests := []struct {
			name   string
			config RequestSizeLimitConfig
		}{
			{"zero max bytes", RequestSizeLimitConfig{MaxBytes: 0}},
			{"negative max bytes", RequestSizeLimitConfig{MaxBytes: -1}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := RequestSizeLimitMiddleware(tt.config)
				assert.ErrorIs(t, err, ErrInvalidMaxSize)
			})
		}

		_, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: 1024})
		assert.NoError(t, err)
	})

	echo := func(t *testing.T, called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true

			data, err := io.ReadAll(r.Body)
			if err != nil {
				var maxErr *http.MaxBytesError
				assert.True(t, errors.As(err, &maxErr))
				w.WriteHeader(http.StatusRequestEntityTooLarge)

				return
			}

			_, _ = w.Write(data)
		})
	}

	tests := []struct {
		name       string
		maxBytes   int64
		body       io.Reader
		wantCode   int
		wantCalled bool
	}{
		{"body within limit", 1024, strings.NewReader("hello"), http.StatusOK, true},
		{"body exactly at limit", 5, strings.NewReader("hello"), http.StatusOK, true},
		{"empty body", 1024, nil, http.StatusOK, true},
		{"declared length exceeds limit", 3, strings.NewReader("hello world"), http.StatusRequestEntityTooLarge, false},
		{"unsized body exceeds limit", 3, unsizedReader{strings.NewReader("hello world")}, http.StatusRequestEntityTooLarge, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := RequestSizeLimitMiddleware(RequestSizeLimitConfig{MaxBytes: tt.maxBytes})
			require.NoError(t, err)

			var called bool

			w := httptest.NewRecorder()
			mw(echo(t, &called)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/callback", tt.body))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}
