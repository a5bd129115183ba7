package muxhandlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

var uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestCorrelationIDMiddleware(t *testing.T) {
	const incomingID = "0190a5c8-7b1e-7c3a-9f00-5d6e7f8a9b0c"

	tests := []struct {
		name           string
		config         CorrelationIDConfig
		incomingHeader string
		wantHeader     string
		wantGenerated  bool
	}{
		{
			name:          "generates UUID v7 by default",
			config:        CorrelationIDConfig{},
			wantGenerated: true,
		},
		{
			name:           "does not trust incoming by default",
			config:         CorrelationIDConfig{},
			incomingHeader: incomingID,
			wantGenerated:  true,
		},
		{
			name:           "trusts incoming UUID when configured",
			config:         CorrelationIDConfig{TrustIncoming: true},
			incomingHeader: incomingID,
			wantHeader:     incomingID,
		},
		{
			name:           "replaces incoming id that is not a UUID",
			config:         CorrelationIDConfig{TrustIncoming: true},
			incomingHeader: "abc\" injected=1",
			wantGenerated:  true,
		},
		{
			name:       "custom generate func",
			config:     CorrelationIDConfig{GenerateFunc: func(_ *http.Request) string { return "custom-id" }},
			wantHeader: "custom-id",
		},
		{
			name:       "custom header name",
			config:     CorrelationIDConfig{HeaderName: "X-Trace-ID", GenerateFunc: func(_ *http.Request) string { return "trace-123" }},
			wantHeader: "trace-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedHeader, capturedContext string

			headerName := tt.config.HeaderName
			if headerName == "" {
				headerName = HeaderCorrelationID
			}

			r := mux.NewRouter()
			r.HandleFunc("/healthz", func(_ http.ResponseWriter, req *http.Request) {
				capturedHeader = req.Header.Get(headerName)
				capturedContext = CorrelationIDFromContext(req.Context())
			}).Methods(http.MethodGet)
			r.Use(CorrelationIDMiddleware(tt.config))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incomingHeader != "" {
				req.Header.Set(headerName, tt.incomingHeader)
			}
			r.ServeHTTP(w, req)

			responseHeader := w.Header().Get(headerName)

			if tt.wantGenerated {
				assert.Regexp(t, uuidV7Regex, responseHeader)
			} else {
				assert.Equal(t, tt.wantHeader, responseHeader)
			}

			assert.Equal(t, responseHeader, capturedHeader)
			assert.Equal(t, responseHeader, capturedContext)
		})
	}

	t.Run("each request gets unique id", func(t *testing.T) {
		h := CorrelationIDMiddleware(CorrelationIDConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w1 := httptest.NewRecorder()
		h.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/", nil))

		w2 := httptest.NewRecorder()
		h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEqual(t, w1.Header().Get(HeaderCorrelationID), w2.Header().Get(HeaderCorrelationID))
	})

	t.Run("empty id does not set headers", func(t *testing.T) {
		var ctxID string

		h := CorrelationIDMiddleware(CorrelationIDConfig{
			GenerateFunc: func(_ *http.Request) string { return "" },
		})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			ctxID = CorrelationIDFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, w.Header().Get(HeaderCorrelationID))
		assert.Empty(t, ctxID)
	})
}

func TestCorrelationIDFromContext(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestGenerateUUIDv7(t *testing.T) {
	a := GenerateUUIDv7(nil)
	b := GenerateUUIDv7(nil)

	assert.Regexp(t, uuidV7Regex, a)
	assert.NotEqual(t, a, b)
}
