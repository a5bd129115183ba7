package sphsig

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HeaderSignature is the header carrying the token on server-to-server
// calls.
const HeaderSignature = "Signature"

const tracerName = "github.com/vitalvas/sph/sphsig"

// SignConfig configures signing of server-to-server requests.
type SignConfig struct {
	// Credentials sign every request. Required.
	Credentials Credentials

	// Account and Merchant are sent as sph-account and sph-merchant
	// unless the request already carries them.
	Account  string
	Merchant string

	// Logger receives signing outcomes. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics records signing outcomes. Optional.
	Metrics *Metrics

	// Tracer starts one span per signed request. Defaults to the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// SignRequest signs an HTTP request in place. It stamps a fresh request id
// and timestamp, adds the account and merchant headers, and sets the
// Signature header over the sph-* headers, method, path, and body. On error
// the request headers are left as they were.
func SignRequest(r *http.Request, cfg SignConfig) (err error) {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	_, span := tracer.Start(r.Context(), "sphsig.SignRequest", trace.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", path),
		attribute.String("sph.key_id", cfg.Credentials.KeyID),
	))

	defer func() {
		cfg.Metrics.observeSign(err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "signing failed")
			logger.Error("request signing failed",
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.Object("credentials", cfg.Credentials),
				zap.Error(err),
			)
		}

		span.End()
	}()

	if err := cfg.Credentials.Validate(); err != nil {
		return err
	}

	id, err := NewIdentity()
	if err != nil {
		return err
	}

	stamp := &ParameterSet{}
	id.Apply(stamp)

	if cfg.Account != "" && r.Header.Get(string(FieldAccount)) == "" {
		stamp.Set(FieldAccount, cfg.Account)
	}

	if cfg.Merchant != "" && r.Header.Get(string(FieldMerchant)) == "" {
		stamp.Set(FieldMerchant, cfg.Merchant)
	}

	// staged on a copy so a failure leaves the caller's headers untouched
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	if err := stamp.ApplyHeader(header); err != nil {
		return err
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	params, err := FromHeader(header)
	if err != nil {
		return err
	}

	canonical, err := Canonicalize(r.Method, path, params, body)
	if err != nil {
		return err
	}

	tok, err := Sign(canonical, cfg.Credentials.KeyID, cfg.Credentials.Secret)
	if err != nil {
		return err
	}

	header.Set(HeaderSignature, tok.String())

	if r.Header == nil {
		r.Header = header
	} else {
		for name, values := range header {
			r.Header[name] = values
		}
	}

	span.SetAttributes(attribute.String("sph.request_id", id.RequestID))

	logger.Debug("request signed",
		zap.String("method", r.Method),
		zap.String("path", path),
		zap.String("request_id", id.RequestID),
		zap.Object("credentials", cfg.Credentials),
	)

	return nil
}

// Transport is an http.RoundTripper that signs outgoing gateway requests.
type Transport struct {
	base   http.RoundTripper
	config SignConfig
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used.
//
// Retry and rate limiting policy belong to base or to the caller; the
// transport signs each attempt with a fresh request id.
func NewTransport(base *http.Transport, cfg SignConfig) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{
		base:   rt,
		config: cfg,
	}
}

// RoundTrip signs a clone of the request and delegates to the base
// transport. When GetBody is available, the clone receives its own body
// copy so the caller's body is not consumed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	if err := SignRequest(clone, t.config); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(clone)
}
