package sphsig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Scheme is the signature scheme tag carried at the start of every token.
const Scheme = "SPH1"

// digestHexLen is the length of a hex-encoded SHA-256 digest.
const digestHexLen = 64

// Token is a signature token: scheme, key id, and lowercase hex digest,
// rendered as "SPH1 <keyId> <digest>".
type Token struct {
	Scheme string
	KeyID  string
	Digest string
}

// String renders the wire form of the token.
func (t Token) String() string {
	return t.Scheme + " " + t.KeyID + " " + t.Digest
}

// ParseToken parses the wire form of a token. It accepts exactly three
// parts separated by single spaces.
func ParseToken(s string) (Token, error) {
	parts := strings.Split(s, " ")
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformedToken, len(parts))
	}

	tok := Token{Scheme: parts[0], KeyID: parts[1], Digest: parts[2]}

	if tok.Scheme != Scheme {
		return Token{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, tok.Scheme)
	}

	if tok.KeyID == "" {
		return Token{}, fmt.Errorf("%w: empty key id", ErrMalformedToken)
	}

	if len(tok.Digest) != digestHexLen {
		return Token{}, fmt.Errorf("%w: digest must be %d hex characters", ErrMalformedToken, digestHexLen)
	}

	if _, err := hex.DecodeString(tok.Digest); err != nil {
		return Token{}, fmt.Errorf("%w: digest is not hex", ErrMalformedToken)
	}

	return tok, nil
}
