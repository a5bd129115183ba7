package sphsig

import "errors"

// Configuration errors. These are fatal and never retried.
var (
	// ErrEmptySecret is returned when the signing secret is nil or empty.
	ErrEmptySecret = errors.New("sphsig: signing secret must not be empty")

	// ErrEmptyKeyID is returned when the signing key identifier is empty.
	ErrEmptyKeyID = errors.New("sphsig: signing key id must not be empty")

	// ErrInvalidKeyID is returned when the key identifier contains
	// whitespace and could not be carried in a signature token.
	ErrInvalidKeyID = errors.New("sphsig: signing key id must not contain whitespace")

	// ErrNoResolver is returned when VerifyConfig has no KeyResolver configured.
	ErrNoResolver = errors.New("sphsig: key resolver must not be nil")

	// ErrReplayWithoutMaxAge is returned when a ReplayGuard is configured
	// without MaxAge. Ids leave the guard after its TTL, so only the
	// freshness window keeps an old request from being accepted again.
	ErrReplayWithoutMaxAge = errors.New("sphsig: replay guard requires a max age")
)

// Construction errors. The caller must fix the input before retrying.
var (
	// ErrInvalidMethod is returned when the HTTP method is empty or is not
	// a valid HTTP token.
	ErrInvalidMethod = errors.New("sphsig: invalid request method")

	// ErrInvalidPath is returned when the request path does not start
	// with "/" or contains a line break.
	ErrInvalidPath = errors.New("sphsig: invalid request path")

	// ErrDuplicateField is returned when a signable field appears more than
	// once in a request.
	ErrDuplicateField = errors.New("sphsig: duplicate signable field")

	// ErrNullField is returned when a signable field is present without a
	// value.
	ErrNullField = errors.New("sphsig: signable field has no value")

	// ErrInvalidField is returned when a field name or value cannot be
	// carried as an HTTP header.
	ErrInvalidField = errors.New("sphsig: invalid field")
)

// Malformed verification input. Distinct from a signature mismatch.
var (
	// ErrSignatureNotFound is returned when the request carries no
	// signature field.
	ErrSignatureNotFound = errors.New("sphsig: signature not found")

	// ErrMalformedToken is returned when the signature token cannot be
	// parsed.
	ErrMalformedToken = errors.New("sphsig: malformed signature token")

	// ErrUnsupportedScheme is returned when the token carries a scheme
	// other than SPH1.
	ErrUnsupportedScheme = errors.New("sphsig: unsupported signature scheme")

	// ErrMissingField is returned when a required field is absent from the
	// received request.
	ErrMissingField = errors.New("sphsig: required field missing")

	// ErrMalformedTimestamp is returned when sph-timestamp cannot be parsed.
	ErrMalformedTimestamp = errors.New("sphsig: malformed timestamp")

	// ErrMalformedForm is returned when a form-encoded body cannot be parsed.
	ErrMalformedForm = errors.New("sphsig: malformed form body")
)

// Request-level verification outcomes used by VerifyRequest and the
// middleware. The core Verify function reports a mismatch as false.
var (
	// ErrSignatureMismatch is returned when the recomputed signature does
	// not match the received one.
	ErrSignatureMismatch = errors.New("sphsig: signature mismatch")

	// ErrSignatureExpired is returned when sph-timestamp is older than the
	// configured maximum age, or lies too far in the future.
	ErrSignatureExpired = errors.New("sphsig: signature expired")

	// ErrReplayed is returned when a request id has already been accepted.
	ErrReplayed = errors.New("sphsig: request id already used")
)

// IsMalformed reports whether err describes structurally malformed input
// rather than a failed verification.
func IsMalformed(err error) bool {
	for _, target := range []error{
		ErrSignatureNotFound,
		ErrMalformedToken,
		ErrUnsupportedScheme,
		ErrMissingField,
		ErrMalformedTimestamp,
		ErrMalformedForm,
		ErrInvalidMethod,
		ErrInvalidPath,
		ErrDuplicateField,
		ErrNullField,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
