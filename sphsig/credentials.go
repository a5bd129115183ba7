package sphsig

import (
	"strings"
	"unicode"

	"go.uber.org/zap/zapcore"
)

// Credentials identify the merchant signing key. The secret is owned by the
// caller; this package never stores, logs, or prints it.
type Credentials struct {
	KeyID  string
	Secret []byte
}

// Validate reports configuration errors: an empty secret, or a key id that
// is empty or could not be carried in a token.
func (c Credentials) Validate() error {
	return validateKey(c.KeyID, c.Secret)
}

func validateKey(keyID string, secret []byte) error {
	if len(secret) == 0 {
		return ErrEmptySecret
	}

	if keyID == "" {
		return ErrEmptyKeyID
	}

	if strings.IndexFunc(keyID, unicode.IsSpace) >= 0 {
		return ErrInvalidKeyID
	}

	return nil
}

// String returns the key id with the secret redacted.
func (c Credentials) String() string {
	return "Credentials{KeyID: " + c.KeyID + ", Secret: [REDACTED]}"
}

// GoString keeps %#v from printing the secret.
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalLogObject logs only the key id.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("key_id", c.KeyID)

	return nil
}
