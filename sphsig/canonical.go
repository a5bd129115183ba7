package sphsig

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Canonicalize serializes a request into the byte string that is signed:
//
//	METHOD\n
//	/path\n
//	key-1:value-1\n
//	key-n:value-n\n
//	body
//
// Only signable fields take part, keys lower-cased and sorted, values
// unchanged. A nil body serializes exactly like an empty one.
//
// The result contains field values such as URLs and order ids and must not
// be logged.
func Canonicalize(method, path string, fields *ParameterSet, body []byte) ([]byte, error) {
	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if !strings.HasPrefix(path, "/") || strings.ContainsAny(path, "\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	lines := fields.signable()

	size := len(method) + len(path) + len(body) + 3
	for _, l := range lines {
		size += len(l.name) + len(l.value) + 2
	}

	var b bytes.Buffer
	b.Grow(size)

	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')

	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(l.name)
		b.WriteByte(':')
		b.WriteString(l.value)
	}

	b.WriteByte('\n')
	b.Write(body)

	return b.Bytes(), nil
}
