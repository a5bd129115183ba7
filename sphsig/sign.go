package sphsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes HMAC-SHA256 over canonical with secret and returns the
// token. An empty secret or key id is rejected before anything is
// computed.
//
// Sign has no shared state and may be called concurrently.
func Sign(canonical []byte, keyID string, secret []byte) (Token, error) {
	if err := validateKey(keyID, secret); err != nil {
		return Token{}, err
	}

	return Token{
		Scheme: Scheme,
		KeyID:  keyID,
		Digest: hex.EncodeToString(computeHMAC(secret, canonical)),
	}, nil
}

// SignParameters canonicalizes the request, signs it with creds, and
// stores the token in params under the signature field. On error params
// is left untouched.
func SignParameters(method, path string, params *ParameterSet, body []byte, creds Credentials) (Token, error) {
	if err := creds.Validate(); err != nil {
		return Token{}, err
	}

	canonical, err := Canonicalize(method, path, params, body)
	if err != nil {
		return Token{}, err
	}

	tok, err := Sign(canonical, creds.KeyID, creds.Secret)
	if err != nil {
		return Token{}, err
	}

	params.Set(FieldSignature, tok.String())

	return tok, nil
}

func computeHMAC(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)

	return h.Sum(nil)
}
