package sphsig

import "strings"

// SignablePrefix marks fields that participate in the signature. Fields
// outside this prefix are never signed.
const SignablePrefix = "sph-"

// APIVersion is the gateway API version sent in sph-api-version.
const APIVersion = "20151028"

// Field is a protocol field name, used both as form field and as HTTP
// header name.
type Field string

// Signed protocol fields.
const (
	FieldAPIVersion               = Field("sph-api-version")
	FieldAccount                  = Field("sph-account")
	FieldMerchant                 = Field("sph-merchant")
	FieldAmount                   = Field("sph-amount")
	FieldCurrency                 = Field("sph-currency")
	FieldOrder                    = Field("sph-order")
	FieldSuccessURL               = Field("sph-success-url")
	FieldFailureURL               = Field("sph-failure-url")
	FieldCancelURL                = Field("sph-cancel-url")
	FieldRequestID                = Field("sph-request-id")
	FieldTimestamp                = Field("sph-timestamp")
	FieldToken                    = Field("sph-token")
	FieldAcceptCVCRequired        = Field("sph-accept-cvc-required")
	FieldSkipFormNotifications    = Field("sph-skip-form-notifications")
	FieldExitIframeOnResult       = Field("sph-exit-iframe-on-result")
	FieldExitIframeOnThreeDSecure = Field("sph-exit-iframe-on-three-d-secure")
	FieldUseThreeDSecure          = Field("sph-use-three-d-secure")
)

// Unsigned fields.
const (
	FieldLanguage    = Field("language")
	FieldDescription = Field("description")

	// FieldSignature carries the signature token. It is never signed over
	// itself.
	FieldSignature = Field("signature")
)

// String returns the field name.
func (f Field) String() string {
	return string(f)
}

// Signable reports whether the field participates in the signature.
func (f Field) Signable() bool {
	return IsSignable(string(f))
}

// IsSignable reports whether a field name carries the signable prefix.
// Matching is case-insensitive.
func IsSignable(name string) bool {
	return len(name) >= len(SignablePrefix) && strings.EqualFold(name[:len(SignablePrefix)], SignablePrefix)
}
