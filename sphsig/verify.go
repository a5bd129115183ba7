package sphsig

import (
	"context"
	"crypto/hmac"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Verify recomputes the signature of a received request and compares it
// with the token carried in the signature field, in constant time.
//
// A valid but mismatching signature returns false with a nil error. Errors
// are reserved for bad configuration and malformed input: a missing or
// unparseable token, or an invalid method or path.
func Verify(received *ParameterSet, method, path string, body []byte, keyID string, secret []byte) (bool, error) {
	if err := validateKey(keyID, secret); err != nil {
		return false, err
	}

	raw, ok := received.Get(FieldSignature)
	if !ok || raw == "" {
		return false, ErrSignatureNotFound
	}

	if _, err := ParseToken(raw); err != nil {
		return false, err
	}

	canonical, err := Canonicalize(method, path, received, body)
	if err != nil {
		return false, err
	}

	expected, err := Sign(canonical, keyID, secret)
	if err != nil {
		return false, err
	}

	return hmac.Equal([]byte(expected.String()), []byte(raw)), nil
}

// KeyResolver returns the credentials for the key id named in a received
// token. The request is provided for context, e.g. to select keys per
// merchant path.
type KeyResolver func(r *http.Request, keyID string) (Credentials, error)

// Extractor pulls the signed fields and the signed body out of a request.
type Extractor func(r *http.Request) (*ParameterSet, []byte, error)

// HeaderFields reads fields from headers and signs over the body. Used for
// server-to-server calls. The body is restored for downstream handlers.
func HeaderFields(r *http.Request) (*ParameterSet, []byte, error) {
	fields, err := FromHeader(r.Header)
	if err != nil {
		return nil, nil, err
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return nil, nil, err
	}

	return fields, body, nil
}

// QueryFields reads fields from the query string with an empty body. Used
// for browser redirects back from the gateway.
func QueryFields(r *http.Request) (*ParameterSet, []byte, error) {
	fields, err := FromValues(r.URL.Query())
	if err != nil {
		return nil, nil, err
	}

	return fields, nil, nil
}

// FormFields reads fields from a form-encoded POST body with an empty
// signed body.
func FormFields(r *http.Request) (*ParameterSet, []byte, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	fields, err := FromValues(r.PostForm)
	if err != nil {
		return nil, nil, err
	}

	return fields, nil, nil
}

// ReplayGuard remembers accepted request ids.
type ReplayGuard interface {
	// Seen records requestID and reports whether it was already recorded.
	Seen(ctx context.Context, requestID string) (bool, error)
}

// defaultRequiredFields must be present on every verified request.
var defaultRequiredFields = []Field{FieldRequestID, FieldTimestamp}

// VerifyConfig configures request-level signature verification.
type VerifyConfig struct {
	// Resolver looks up credentials for the token's key id. Required.
	Resolver KeyResolver

	// Extractor selects where fields come from. Defaults to HeaderFields.
	Extractor Extractor

	// RequiredFields must be present in the request. Defaults to
	// sph-request-id and sph-timestamp.
	RequiredFields []Field

	// MaxAge, when non-zero, rejects requests whose sph-timestamp differs
	// from the current time by MaxAge or more in either direction.
	MaxAge time.Duration

	// Replay, when set, rejects request ids that were already accepted.
	// It is consulted only after the signature verified. It requires
	// MaxAge, and the guard must remember ids for at least 2*MaxAge, the
	// width of the freshness window; a shorter memory lets a captured
	// request verify again once its id is forgotten.
	Replay ReplayGuard

	// Metrics records verification outcomes. Optional.
	Metrics *Metrics

	// Logger receives verification outcomes. Defaults to a no-op logger.
	Logger *zap.Logger

	// Now overrides the clock used for MaxAge. Defaults to time.Now.
	Now func() time.Time
}

func (cfg VerifyConfig) validate() error {
	if cfg.Resolver == nil {
		return ErrNoResolver
	}

	if cfg.Replay != nil && cfg.MaxAge <= 0 {
		return ErrReplayWithoutMaxAge
	}

	return nil
}

// VerifyRequest verifies the signature of an incoming request. A mismatch
// is reported as ErrSignatureMismatch; use IsMalformed to tell malformed
// input apart from failed verification.
func VerifyRequest(r *http.Request, cfg VerifyConfig) error {
	_, err := verifyRequest(r, cfg)

	return err
}

func verifyRequest(r *http.Request, cfg VerifyConfig) (*ParameterSet, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fields, err := checkRequest(r, cfg)

	result := verifyResult(err)
	cfg.Metrics.observeVerify(result)

	if err != nil {
		logger.Warn("signature verification failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("result", result),
			zap.Error(err),
		)

		return nil, err
	}

	requestID, _ := fields.Get(FieldRequestID)
	logger.Debug("signature verified",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID),
	)

	return fields, nil
}

func checkRequest(r *http.Request, cfg VerifyConfig) (*ParameterSet, error) {
	extract := cfg.Extractor
	if extract == nil {
		extract = HeaderFields
	}

	fields, body, err := extract(r)
	if err != nil {
		return nil, err
	}

	required := cfg.RequiredFields
	if required == nil {
		required = defaultRequiredFields
	}

	for _, f := range required {
		if _, ok := fields.Get(f); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}

	raw, ok := fields.Get(FieldSignature)
	if !ok || raw == "" {
		return nil, ErrSignatureNotFound
	}

	tok, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}

	if cfg.MaxAge > 0 {
		if err := checkFreshness(fields, cfg); err != nil {
			return nil, err
		}
	}

	creds, err := cfg.Resolver(r, tok.KeyID)
	if err != nil {
		return nil, err
	}

	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	valid, err := Verify(fields, r.Method, path, body, creds.KeyID, creds.Secret)
	if err != nil {
		return nil, err
	}

	if !valid {
		return nil, ErrSignatureMismatch
	}

	if cfg.Replay != nil {
		requestID, _ := fields.Get(FieldRequestID)
		if requestID == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, FieldRequestID)
		}

		seen, err := cfg.Replay.Seen(r.Context(), requestID)
		if err != nil {
			return nil, err
		}

		if seen {
			return nil, ErrReplayed
		}
	}

	return fields, nil
}

func checkFreshness(fields *ParameterSet, cfg VerifyConfig) error {
	raw, ok := fields.Get(FieldTimestamp)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldTimestamp)
	}

	ts, err := ParseTimestamp(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	age := now().Sub(ts)
	if age >= cfg.MaxAge || age <= -cfg.MaxAge {
		return ErrSignatureExpired
	}

	return nil
}
